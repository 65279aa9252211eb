// Package hub tracks the websocket clients attached to this process,
// keyed by socket id. Routable identity lives in presence.Registry; the hub
// only holds the local connection handles the registry's socket ids resolve
// to.
package hub

import "sync"

// Client is one attached connection. UserID is empty for anonymous sockets.
type Client struct {
	SocketID string
	UserID   string

	send chan []byte
	once sync.Once
}

func NewClient(socketID, userID string) *Client {
	return &Client{
		SocketID: socketID,
		UserID:   userID,
		send:     make(chan []byte, 256),
	}
}

// Enqueue hands a frame to the client's writer. Slow clients drop frames
// rather than block the relay.
func (c *Client) Enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Outbox is consumed by the connection's write pump.
func (c *Client) Outbox() <-chan []byte { return c.send }

// Close releases the outbox; safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.send) })
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // socketID -> client
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.SocketID] = c
}

func (h *Hub) Remove(socketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, socketID)
}

func (h *Hub) Get(socketID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[socketID]
	return c, ok
}

// Broadcast enqueues a frame to every attached client.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.Enqueue(msg)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
