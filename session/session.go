// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/chipstack/casinobot/network"
)

// Session is one authenticated client connection.
type Session struct {
	ID      string
	Conn    network.Connection
	UserID  int64
	GuildID int64
	Name    string

	CreatedAt  time.Time
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

// Authenticate binds the chat identity to the connection.
func (s *Session) Authenticate(userID, guildID int64, name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.UserID = userID
	s.GuildID = guildID
	s.Name = name
}

// Authenticated reports whether an identity has been bound.
func (s *Session) Authenticated() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.UserID != 0
}

// Touch refreshes the idle clock.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = time.Now()
}

// LastActive returns when the session last sent or received anything.
func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks every live session.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByUser returns every session bound to one chat identity.
func (m *Manager) GetByUser(userID, guildID int64) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.UserID == userID && session.GuildID == guildID {
			result = append(result, session)
		}
	}
	return result
}

// All returns a snapshot of every live session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
