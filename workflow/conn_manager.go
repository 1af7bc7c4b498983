package workflow

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Session is a live duplex connection for one (user, session) pair. The
// websocket handler wraps the raw conn so writes are serialized; the manager
// only needs these two methods.
type Session interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Envelope is the framing for every message pushed to a client.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ConnectionManager owns the connection table: (userID, sessionID) -> session
// handle, plus the reverse index userID -> live session ids. Notifications
// fan out to every session a user has open.
type ConnectionManager struct {
	mu    sync.Mutex
	conns map[string]map[string]Session // userID -> sessionID -> session
	log   *logrus.Entry
}

func NewConnectionManager(log *logrus.Entry) *ConnectionManager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ConnectionManager{
		conns: make(map[string]map[string]Session),
		log:   log,
	}
}

// Connect registers a session. A reconnect with the same session id replaces
// the old handle.
func (m *ConnectionManager) Connect(userID, sessionID string, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conns[userID] == nil {
		m.conns[userID] = make(map[string]Session)
	}
	m.conns[userID][sessionID] = s
}

// Disconnect removes the session; the user entry is dropped once their last
// session is gone.
func (m *ConnectionManager) Disconnect(userID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(userID, sessionID)
}

func (m *ConnectionManager) removeLocked(userID, sessionID string) {
	sessions, ok := m.conns[userID]
	if !ok {
		return
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(m.conns, userID)
	}
}

// Notify multicasts the envelope to all of the user's sessions. A failed
// write disconnects that session only; remaining sessions still get their
// delivery attempt.
func (m *ConnectionManager) Notify(userID string, msg Envelope) {
	for sessionID, s := range m.snapshot(userID) {
		if err := s.WriteJSON(msg); err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{
				"user_id":    userID,
				"session_id": sessionID,
			}).Warn("dropping session after failed send")
			_ = s.Close()
			m.Disconnect(userID, sessionID)
		}
	}
}

// NotifySession sends to one specific session, if still connected.
func (m *ConnectionManager) NotifySession(userID, sessionID string, msg Envelope) {
	m.mu.Lock()
	s, ok := m.conns[userID][sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := s.WriteJSON(msg); err != nil {
		_ = s.Close()
		m.Disconnect(userID, sessionID)
	}
}

func (m *ConnectionManager) snapshot(userID string) map[string]Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Session, len(m.conns[userID]))
	for id, s := range m.conns[userID] {
		out[id] = s
	}
	return out
}

// ActiveConnections counts live sessions across all users.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, sessions := range m.conns {
		total += len(sessions)
	}
	return total
}
