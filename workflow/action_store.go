package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActionKind is the kind of interaction a user performed on an email.
type ActionKind string

const (
	ActionArchive    ActionKind = "archive"
	ActionDelete     ActionKind = "delete"
	ActionLabel      ActionKind = "label"
	ActionStar       ActionKind = "star"
	ActionUnstar     ActionKind = "unstar"
	ActionOpen       ActionKind = "open"
	ActionClose      ActionKind = "close"
	ActionMarkRead   ActionKind = "mark_read"
	ActionMarkUnread ActionKind = "mark_unread"
)

// EmailRef is the sparse email record attached to an action or event.
type EmailRef struct {
	ID      string   `json:"id"`
	Sender  string   `json:"sender"`
	Subject string   `json:"subject"`
	Labels  []string `json:"labels,omitempty"`
	IsRead  bool     `json:"is_read"`
}

// UserAction is one observed interaction. Immutable once recorded.
type UserAction struct {
	ID         string                 `json:"id"`
	Action     ActionKind             `json:"action"`
	Timestamp  time.Time              `json:"timestamp"`
	Email      EmailRef               `json:"email"`
	UserID     string                 `json:"user_id"`
	SessionID  string                 `json:"session_id"`
	Context    map[string]interface{} `json:"context,omitempty"`
	DurationMs int                    `json:"duration,omitempty"`
}

// ContextString reads a string-valued key out of the free-form context.
func (a UserAction) ContextString(key string) string {
	if v, ok := a.Context[key].(string); ok {
		return v
	}
	return ""
}

// maxActionsPerUser bounds each user's log; older entries are evicted FIFO.
const maxActionsPerUser = 100

// ActionStore keeps a bounded, append-only action log per user.
type ActionStore struct {
	mu   sync.RWMutex
	logs map[string][]UserAction
}

func NewActionStore() *ActionStore {
	return &ActionStore{
		logs: make(map[string][]UserAction),
	}
}

// Record assigns a fresh id, appends the action to the user's log and trims
// the log to the most recent entries. Returns the assigned id.
func (s *ActionStore) Record(action UserAction) string {
	action.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	log := append(s.logs[action.UserID], action)
	if len(log) > maxActionsPerUser {
		log = log[len(log)-maxActionsPerUser:]
	}
	s.logs[action.UserID] = log

	return action.ID
}

// Recent returns up to limit of the user's most recent actions in
// chronological order. Unknown users get an empty slice.
func (s *ActionStore) Recent(userID string, limit int) []UserAction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[userID]
	if limit < len(log) {
		log = log[len(log)-limit:]
	}

	out := make([]UserAction, len(log))
	copy(out, log)
	return out
}

// Count returns how many actions are currently retained for the user.
func (s *ActionStore) Count(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs[userID])
}

// UserCount returns how many users have at least one recorded action.
func (s *ActionStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs)
}

// TotalActions returns the number of retained actions across all users.
func (s *ActionStore) TotalActions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, log := range s.logs {
		total += len(log)
	}
	return total
}
