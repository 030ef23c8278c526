// ABOUTME: In-memory session store used by tests and single-node dev setups
// ABOUTME: Same semantics as the SQLite store but nothing survives a restart

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with a mutex-guarded map.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Create(_ context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sess
	m.sessions[sess.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if sess.Expired(time.Now()) {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var removed int64
	for id, sess := range m.sessions {
		if sess.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Close() error { return nil }
