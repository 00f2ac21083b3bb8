package sessions

import (
	"context"
	"sync"
	"time"
)

// Session is the per-session record kept by MemoryStore.
type Session struct {
	Key     string    `json:"key"`
	Mode    string    `json:"mode,omitempty"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// MemoryStore keeps sessions in process memory. Safe for concurrent use.
// State is lost on restart.
type MemoryStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Mode returns the stored mode, or "" for unknown sessions.
func (m *MemoryStore) Mode(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.Mode, nil
	}
	return "", nil
}

// SetMode creates the session on first write.
func (m *MemoryStore) SetMode(_ context.Context, key, mode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	s, ok := m.sessions[key]
	if !ok {
		s = &Session{Key: key, Created: now}
		m.sessions[key] = s
	}
	s.Mode = mode
	s.Updated = now
	return nil
}

// Get returns a copy of the session record.
func (m *MemoryStore) Get(key string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Len returns the number of sessions that have set a mode.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) Close() error { return nil }
