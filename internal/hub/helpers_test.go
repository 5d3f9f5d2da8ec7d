package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"clinic-queue/internal/logx"
	"clinic-queue/internal/slots"
)

func newTestClient(buffer int) *Client {
	return NewClient(nil, ClientOptions{SendBuffer: buffer}, logx.Nop())
}

func newTestManager(n int) *Manager {
	return NewManager(slots.NewStore(n), NewClientManager(logx.Nop()), logx.Nop())
}

// drain returns every message currently queued for c without blocking.
func drain(t *testing.T, c *Client) []Message {
	t.Helper()
	var out []Message
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				return out
			}
			var msg Message
			require.NoError(t, json.Unmarshal(b, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

// next waits for one queued message.
func next(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case b, ok := <-c.send:
		require.True(t, ok, "queue closed")
		var msg Message
		require.NoError(t, json.Unmarshal(b, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func queueClosed(c *Client) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type frame struct {
	kind int
	data []byte
}

type fakeConn struct {
	reads chan []byte

	mu       sync.Mutex
	writes   []frame
	closed   bool
	writeErr error
}

func newFakeConn(buffer int) *fakeConn {
	return &fakeConn{reads: make(chan []byte, buffer)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	b, ok := <-f.reads
	if !ok {
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
	return websocket.TextMessage, b, nil
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, frame{kind: kind, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("already closed")
	}
	f.closed = true
	return nil
}

func (f *fakeConn) frames() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]frame(nil), f.writes...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
