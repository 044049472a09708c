package workspace

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/thywilljoshua/repot-ai/internal/ai"
	"github.com/thywilljoshua/repot-ai/internal/bridge"
	"github.com/thywilljoshua/repot-ai/internal/logging"
)

// Manager keeps the live sessions of the process.
type Manager struct {
	gen ai.Generator
	log *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(gen ai.Generator, log *slog.Logger) *Manager {
	return &Manager{gen: gen, log: logging.Or(log), sessions: map[string]*Session{}}
}

// Create starts a session for the category named by labelOrName.
func (m *Manager) Create(labelOrName string) *Session {
	id := uuid.NewString()
	s := NewSession(id, labelOrName, m.gen, bridge.NewHub(m.log.With("session", id)), m.log)
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	m.log.Info("session created", "session", id, "category", string(s.info.Category))
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops a session and disconnects its surfaces.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.hub.Close()
	}
	return ok
}

// IDs lists session ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Close disconnects every surface of every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.hub.Close()
		delete(m.sessions, id)
	}
}
