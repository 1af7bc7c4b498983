package workflow

import (
	"errors"
	"testing"
	"time"
)

func senderSuggestion(sender string) *Suggestion {
	return &Suggestion{
		ID:          "sug-1",
		Description: "Auto-archive emails from " + sender + "?",
		Confidence:  0.8,
		Rule: RulePlan{
			When:  []Condition{{Field: "sender", Equals: sender}},
			Steps: []RuleStep{{Op: "archive"}},
		},
		PatternType:  "sender_based",
		TriggerEvent: TriggerEmailReceived,
		CreatedAt:    time.Now(),
	}
}

func TestHookStorePersist(t *testing.T) {
	store := NewHookStore()

	hook := store.Persist("u1", senderSuggestion("a@b.com"))
	if hook.ID == "" {
		t.Fatal("persisted hook has no id")
	}
	if !hook.Enabled {
		t.Error("new hooks must start enabled")
	}
	if hook.Name != "auto_sender_based_0" {
		t.Errorf("Name = %q, want auto_sender_based_0", hook.Name)
	}
	if hook.TriggerEvent != TriggerEmailReceived {
		t.Errorf("TriggerEvent = %q", hook.TriggerEvent)
	}

	second := store.Persist("u1", senderSuggestion("c@d.com"))
	if second.Name != "auto_sender_based_1" {
		t.Errorf("second hook Name = %q, want ordinal 1", second.Name)
	}

	list := store.List("u1")
	if len(list) != 2 || list[0].ID != hook.ID || list[1].ID != second.ID {
		t.Fatalf("List returned wrong hooks: %+v", list)
	}
}

func TestHookStoreToggle(t *testing.T) {
	store := NewHookStore()
	hook := store.Persist("u1", senderSuggestion("a@b.com"))

	enabled, err := store.Toggle("u1", hook.ID)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if enabled {
		t.Error("first toggle should disable the hook")
	}

	enabled, err = store.Toggle("u1", hook.ID)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !enabled {
		t.Error("second toggle should re-enable the hook")
	}

	if _, err := store.Toggle("u1", "missing"); !errors.Is(err, ErrHookNotFound) {
		t.Errorf("Toggle(missing) error = %v, want ErrHookNotFound", err)
	}
	if _, err := store.Toggle("other-user", hook.ID); !errors.Is(err, ErrHookNotFound) {
		t.Errorf("Toggle across users error = %v, want ErrHookNotFound", err)
	}
}

func TestHookStoreDelete(t *testing.T) {
	store := NewHookStore()
	hook := store.Persist("u1", senderSuggestion("a@b.com"))

	store.Delete("u1", hook.ID)
	if got := store.List("u1"); len(got) != 0 {
		t.Fatalf("List after delete has %d hooks", len(got))
	}

	// Deleting again, or deleting an unknown id, is a silent no-op.
	store.Delete("u1", hook.ID)
	store.Delete("u1", "never-existed")
}

func TestHookStoreEnabledFor(t *testing.T) {
	store := NewHookStore()
	received := store.Persist("u1", senderSuggestion("a@b.com"))

	closedSug := senderSuggestion("c@d.com")
	closedSug.TriggerEvent = TriggerEmailClosed
	store.Persist("u1", closedSug)

	disabled := store.Persist("u1", senderSuggestion("e@f.com"))
	if _, err := store.Toggle("u1", disabled.ID); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	got := store.enabledFor("u1", TriggerEmailReceived)
	if len(got) != 1 || got[0].ID != received.ID {
		t.Fatalf("enabledFor returned %d hooks, want just the enabled email_received one", len(got))
	}
}

func TestHookStoreCounters(t *testing.T) {
	store := NewHookStore()
	h1 := store.Persist("u1", senderSuggestion("a@b.com"))
	store.Persist("u2", senderSuggestion("c@d.com"))

	store.markExecuted("u1", h1.ID, time.Now())
	store.markExecuted("u1", h1.ID, time.Now())
	store.markExecuted("u1", "already-deleted", time.Now())

	if got := store.TotalHooks(); got != 2 {
		t.Errorf("TotalHooks = %d, want 2", got)
	}
	if got := store.TotalExecutions(); got != 2 {
		t.Errorf("TotalExecutions = %d, want 2", got)
	}

	got, err := store.Get("u1", h1.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ExecutionCount != 2 || got.LastExecutedAt == nil {
		t.Errorf("execution bookkeeping wrong: count=%d last=%v", got.ExecutionCount, got.LastExecutedAt)
	}
	if _, err := store.Get("u1", "missing"); !errors.Is(err, ErrHookNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrHookNotFound", err)
	}
}

func TestHookStoreHandsOutCopies(t *testing.T) {
	store := NewHookStore()
	persisted := store.Persist("u1", senderSuggestion("a@b.com"))

	store.markExecuted("u1", persisted.ID, time.Now())

	// The copy returned by Persist must not see later mutations.
	if persisted.ExecutionCount != 0 {
		t.Errorf("Persist copy mutated: count=%d", persisted.ExecutionCount)
	}

	listed := store.List("u1")
	store.markExecuted("u1", persisted.ID, time.Now())
	if listed[0].ExecutionCount != 1 {
		t.Errorf("List copy mutated: count=%d", listed[0].ExecutionCount)
	}

	current, err := store.Get("u1", persisted.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if current.ExecutionCount != 2 {
		t.Errorf("Get returned stale count %d, want 2", current.ExecutionCount)
	}
}
