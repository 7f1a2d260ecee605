package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process [Store] for single-node deployments and tests.
// It never sweeps; expired records stay until the Engine deletes them on verify.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[[32]byte]Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[[32]byte]Session)}
}

func (m *MemoryStore) Save(_ context.Context, sess *Session, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.TokenHash] = *sess
	return nil
}

func (m *MemoryStore) Get(_ context.Context, tokenHash [32]byte) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (m *MemoryStore) Delete(_ context.Context, tokenHash [32]byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[tokenHash]
	delete(m.sessions, tokenHash)
	return ok, nil
}

func (m *MemoryStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for hash, sess := range m.sessions {
		if sess.UserID == userID {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
