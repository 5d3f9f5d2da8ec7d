package hub

import (
	"sync"

	"clinic-queue/internal/logx"
)

// ClientManager is the set of live clients. It is safe for concurrent use.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     logx.Logger
}

func NewClientManager(log logx.Logger) *ClientManager {
	return &ClientManager{
		clients: make(map[*Client]struct{}),
		log:     log,
	}
}

// Add registers c. It reports false if c was already registered.
func (m *ClientManager) Add(c *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c]; ok {
		return false
	}
	m.clients[c] = struct{}{}
	return true
}

// Remove unregisters c and closes its queue. Removing an unknown client is a
// no-op.
func (m *ClientManager) Remove(c *Client) bool {
	m.mu.Lock()
	_, ok := m.clients[c]
	delete(m.clients, c)
	m.mu.Unlock()

	if ok {
		c.close()
	}
	return ok
}

// Broadcast queues msg for every client registered at the time of the call
// and returns how many accepted it. Clients that cannot take it are removed.
func (m *ClientManager) Broadcast(msg []byte) int {
	targets := m.snapshot()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(msg) {
			delivered++
			continue
		}
		if m.Remove(c) {
			m.log.Warn("client dropped: outbound queue full", logx.String("client", c.id))
		}
	}
	return delivered
}

func (m *ClientManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Close removes every client.
func (m *ClientManager) Close() {
	for _, c := range m.snapshot() {
		m.Remove(c)
	}
}

func (m *ClientManager) snapshot() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.clients))
	for c := range m.clients {
		out = append(out, c)
	}
	return out
}
