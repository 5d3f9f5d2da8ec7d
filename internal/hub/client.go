package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"clinic-queue/internal/logx"
)

// Conn is the part of *websocket.Conn a client needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type ClientOptions struct {
	SendBuffer      int
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	MaxMessageBytes int64
	// RatePerSec caps inbound messages; 0 means unlimited.
	RatePerSec int
	Burst      int
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.Burst <= 0 {
		o.Burst = max(1, o.RatePerSec)
	}
	return o
}

// Client is one connected board. The read goroutine feeds the Manager, the
// write goroutine drains send.
type Client struct {
	id      string
	socket  Conn
	send    chan []byte
	opts    ClientOptions
	limiter *rate.Limiter
	log     logx.Logger

	mu     sync.Mutex
	closed bool
}

func NewClient(socket Conn, opts ClientOptions, log logx.Logger) *Client {
	opts = opts.withDefaults()
	c := &Client{
		id:     uuid.NewString(),
		socket: socket,
		send:   make(chan []byte, opts.SendBuffer),
		opts:   opts,
	}
	if opts.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst)
	}
	c.log = log.With(logx.String("client", c.id))
	return c
}

func (c *Client) ID() string { return c.id }

// enqueue never blocks. It fails when the queue is full or closed.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close ends the outbound queue; the write goroutine then sends a close frame.
// Only the first call has an effect.
func (c *Client) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

func (c *Client) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

func (c *Client) read(m *Manager) {
	defer func() {
		m.Unregister(c)
		c.socket.Close()
	}()

	if c.opts.MaxMessageBytes > 0 {
		c.socket.SetReadLimit(c.opts.MaxMessageBytes)
	}
	_ = c.socket.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Warn("client read failed", logx.Err(err))
			}
			return
		}
		if !c.allow() {
			c.log.Debug("message dropped: rate limited")
			continue
		}
		if err := m.Submit(c, message); err != nil {
			return
		}
	}
}

func (c *Client) write() {
	ticker := time.NewTicker(c.opts.PongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn("client write failed", logx.Err(err))
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
