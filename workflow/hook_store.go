package workflow

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrHookNotFound is returned when a hook id does not exist for the user.
var ErrHookNotFound = errors.New("hook not found")

// Hook is an accepted, persisted automation bound to a trigger event.
type Hook struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Rule           RulePlan     `json:"rule"`
	TriggerEvent   TriggerEvent `json:"trigger_event"`
	Enabled        bool         `json:"enabled"`
	CreatedAt      time.Time    `json:"created_at"`
	ExecutionCount int          `json:"execution_count"`
	LastExecutedAt *time.Time   `json:"last_executed_at,omitempty"`
}

// HookStore owns the per-user hook lists. Hooks live in memory only; this is
// a prototype store, not a durable one. All accessors return value copies so
// no caller ever holds a reference the store mutates behind the mutex.
type HookStore struct {
	mu    sync.RWMutex
	hooks map[string][]*Hook
}

func NewHookStore() *HookStore {
	return &HookStore{
		hooks: make(map[string][]*Hook),
	}
}

// Persist converts an accepted suggestion into an enabled hook and appends it
// to the user's list. Returns a copy of the stored hook.
func (s *HookStore) Persist(userID string, suggestion *Suggestion) Hook {
	s.mu.Lock()
	defer s.mu.Unlock()

	hook := &Hook{
		ID:           uuid.NewString(),
		Name:         hookName(suggestion, len(s.hooks[userID])),
		Description:  suggestion.Description,
		Rule:         suggestion.Rule,
		TriggerEvent: suggestion.TriggerEvent,
		Enabled:      true,
		CreatedAt:    time.Now(),
	}
	s.hooks[userID] = append(s.hooks[userID], hook)
	return *hook
}

func hookName(suggestion *Suggestion, ordinal int) string {
	base := strings.ToLower(strings.TrimSpace(suggestion.PatternType))
	if base == "" {
		base = "automation"
	}
	return fmt.Sprintf("auto_%s_%d", strings.ReplaceAll(base, " ", "_"), ordinal)
}

// Toggle flips the hook's enabled flag and returns the new state.
func (s *HookStore) Toggle(userID, hookID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, hook := range s.hooks[userID] {
		if hook.ID == hookID {
			hook.Enabled = !hook.Enabled
			return hook.Enabled, nil
		}
	}
	return false, ErrHookNotFound
}

// Delete removes the hook if present. Deleting an unknown hook is a no-op.
func (s *HookStore) Delete(userID, hookID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.hooks[userID]
	for i, hook := range list {
		if hook.ID == hookID {
			s.hooks[userID] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// List returns copies of the user's hooks in insertion order.
func (s *HookStore) List(userID string) []Hook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Hook, 0, len(s.hooks[userID]))
	for _, hook := range s.hooks[userID] {
		out = append(out, *hook)
	}
	return out
}

// Get returns a copy of one hook.
func (s *HookStore) Get(userID, hookID string) (Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, hook := range s.hooks[userID] {
		if hook.ID == hookID {
			return *hook, nil
		}
	}
	return Hook{}, ErrHookNotFound
}

// enabledFor returns copies of the user's enabled hooks bound to the event.
func (s *HookStore) enabledFor(userID string, event TriggerEvent) []Hook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Hook
	for _, hook := range s.hooks[userID] {
		if hook.Enabled && hook.TriggerEvent == event {
			out = append(out, *hook)
		}
	}
	return out
}

// markExecuted records a successful run on the hook. A hook deleted while it
// was executing is silently skipped.
func (s *HookStore) markExecuted(userID, hookID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, hook := range s.hooks[userID] {
		if hook.ID == hookID {
			hook.ExecutionCount++
			hook.LastExecutedAt = &at
			return
		}
	}
}

// TotalHooks counts hooks across all users.
func (s *HookStore) TotalHooks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, list := range s.hooks {
		total += len(list)
	}
	return total
}

// TotalExecutions sums execution counts across all hooks.
func (s *HookStore) TotalExecutions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, list := range s.hooks {
		for _, hook := range list {
			total += hook.ExecutionCount
		}
	}
	return total
}
