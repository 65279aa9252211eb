package presence

import (
	"context"
	"sync"
)

// Memory is the default process-local registry. It is rebuilt empty on every
// restart and is only correct when a single relay instance is running.
type Memory struct {
	mu      sync.RWMutex
	sockets map[string]string // userID -> socketID
}

func NewMemory() *Memory {
	return &Memory{sockets: make(map[string]string)}
}

func (m *Memory) MarkOnline(_ context.Context, userID, socketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sockets[userID] = socketID
	return nil
}

func (m *Memory) MarkOffline(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sockets, userID)
	return nil
}

func (m *Memory) Lookup(_ context.Context, userID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sid, ok := m.sockets[userID]
	return sid, ok, nil
}
