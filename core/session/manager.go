package session

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core/user"
)

var ErrNotFound = errors.New("session not found")

// Manager holds the sessions of the process by id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Start opens a new session signed in as usr.
func (m *Manager) Start(usr user.User) *Session {
	s := New()
	s.SignIn(usr)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

// End signs the session out and forgets it.
func (m *Manager) End(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.SignOut()
	}
}

func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		res = append(res, s)
	}
	return res
}

// Refresh reloads the user of every session after the users collection changed.
// Sessions whose user disappeared are ended.
func (m *Manager) Refresh(lookup func(id string) (user.User, error)) {
	for _, s := range m.All() {
		usr, ok := s.User()
		if !ok {
			continue
		}
		latest, err := lookup(usr.ID)
		switch {
		case err == nil:
			s.SignIn(latest)
		case errors.Cause(err) == user.ErrNotFound:
			m.End(s.ID)
		}
	}
}

// Close ends every session.
func (m *Manager) Close() {
	for _, s := range m.All() {
		m.End(s.ID)
	}
}
