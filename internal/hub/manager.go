package hub

import (
	"context"
	"errors"

	"clinic-queue/internal/logx"
	"clinic-queue/internal/slots"
)

// ErrClosed is returned once the Manager loop has stopped.
var ErrClosed = errors.New("hub closed")

type inbound struct {
	client *Client
	data   []byte
}

// Manager serializes joins, departures and slot updates through one loop.
type Manager struct {
	store   *slots.Store
	clients *ClientManager
	log     logx.Logger

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	done       chan struct{}
}

func NewManager(store *slots.Store, clients *ClientManager, log logx.Logger) *Manager {
	return &Manager{
		store:      store,
		clients:    clients,
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 64),
		done:       make(chan struct{}),
	}
}

// Run processes events until ctx is done, then drops every client. It must be
// called exactly once.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	defer m.clients.Close()

	m.log.Info("hub started", logx.Int("slots", m.store.Len()))
	for {
		select {
		case <-ctx.Done():
			m.log.Info("hub stopping", logx.Int("clients", m.clients.Count()))
			return
		case c := <-m.register:
			m.join(c)
		case c := <-m.unregister:
			m.leave(c)
		case in := <-m.inbound:
			if err := m.handleMessage(in.client, in.data); err != nil {
				in.client.log.Debug("message dropped", logx.Err(err))
			}
		}
	}
}

// Register adds c and queues it the full board.
func (m *Manager) Register(ctx context.Context, c *Client) error {
	select {
	case m.register <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrClosed
	}
}

// Unregister removes c. It never blocks on a stopped loop and is safe to
// call any number of times.
func (m *Manager) Unregister(c *Client) {
	select {
	case m.unregister <- c:
	case <-m.done:
		m.clients.Remove(c)
	}
}

// Submit hands a raw client message to the loop.
func (m *Manager) Submit(c *Client, data []byte) error {
	select {
	case m.inbound <- inbound{client: c, data: data}:
		return nil
	case <-m.done:
		return ErrClosed
	}
}

// Snapshot returns the current board.
func (m *Manager) Snapshot() []slots.Slot {
	return m.store.GetAll()
}

// Clients returns the number of connected clients.
func (m *Manager) Clients() int {
	return m.clients.Count()
}

func (m *Manager) join(c *Client) {
	if !m.clients.Add(c) {
		return
	}
	for i, slot := range m.store.GetAll() {
		msg, err := encodeSlot(i, slot)
		if err != nil {
			m.log.Error("encode replay failed", logx.Int("index", i), logx.Err(err))
			m.clients.Remove(c)
			return
		}
		if !c.enqueue(msg) {
			c.log.Warn("client dropped: replay did not fit outbound queue", logx.Int("index", i))
			m.clients.Remove(c)
			return
		}
	}
	c.log.Info("client connected", logx.Int("clients", m.clients.Count()))
}

func (m *Manager) leave(c *Client) {
	if m.clients.Remove(c) {
		c.log.Info("client disconnected", logx.Int("clients", m.clients.Count()))
	}
}

func (m *Manager) handleMessage(c *Client, data []byte) error {
	u, err := ParseUpdate(data, m.store.Len())
	if err != nil {
		return err
	}
	slot, delivered, err := m.apply(u)
	if err != nil {
		return err
	}

	c.log.Info("slot updated",
		logx.Int("index", u.Index),
		logx.String("status", slot.Status),
		logx.Int("delivered", delivered),
	)
	return nil
}

// apply stores u, then broadcasts the stored record.
func (m *Manager) apply(u Update) (slots.Slot, int, error) {
	slot, err := m.store.Set(u.Index, u.Fields)
	if err != nil {
		m.log.Error("slot update rejected by store", logx.Int("index", u.Index), logx.Err(err))
		return slots.Slot{}, 0, err
	}
	msg, err := encodeSlot(u.Index, slot)
	if err != nil {
		m.log.Error("encode broadcast failed", logx.Int("index", u.Index), logx.Err(err))
		return slots.Slot{}, 0, err
	}
	return slot, m.clients.Broadcast(msg), nil
}
