package workflow

import (
	"fmt"
	"testing"
	"time"
)

func testAction(userID string, kind ActionKind, sender string) UserAction {
	return UserAction{
		Action:    kind,
		Timestamp: time.Now(),
		Email: EmailRef{
			ID:      "m1",
			Sender:  sender,
			Subject: "hello",
		},
		UserID:    userID,
		SessionID: "s1",
	}
}

func TestActionStoreAssignsIDs(t *testing.T) {
	store := NewActionStore()

	id1 := store.Record(testAction("u1", ActionArchive, "a@b.com"))
	id2 := store.Record(testAction("u1", ActionArchive, "a@b.com"))

	if id1 == "" || id2 == "" {
		t.Fatalf("expected non-empty ids, got %q and %q", id1, id2)
	}
	if id1 == id2 {
		t.Fatalf("expected unique ids, both were %q", id1)
	}
}

func TestActionStoreBoundsLog(t *testing.T) {
	tests := []struct {
		name     string
		recorded int
		want     int
	}{
		{"under the cap", 5, 5},
		{"exactly the cap", 100, 100},
		{"over the cap", 150, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewActionStore()
			for i := 0; i < tt.recorded; i++ {
				a := testAction("u1", ActionArchive, fmt.Sprintf("sender%d@x.com", i))
				store.Record(a)
			}

			got := store.Recent("u1", 1000)
			if len(got) != tt.want {
				t.Fatalf("Recent returned %d actions, want %d", len(got), tt.want)
			}

			// Retained entries must be exactly the most recent ones, oldest
			// first within the window.
			first := tt.recorded - tt.want
			for i, a := range got {
				want := fmt.Sprintf("sender%d@x.com", first+i)
				if a.Email.Sender != want {
					t.Fatalf("action %d has sender %q, want %q", i, a.Email.Sender, want)
				}
			}
		})
	}
}

func TestActionStoreRecentLimit(t *testing.T) {
	store := NewActionStore()
	for i := 0; i < 10; i++ {
		store.Record(testAction("u1", ActionStar, fmt.Sprintf("s%d@x.com", i)))
	}

	got := store.Recent("u1", 3)
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d actions", len(got))
	}
	if got[0].Email.Sender != "s7@x.com" || got[2].Email.Sender != "s9@x.com" {
		t.Fatalf("Recent(3) returned wrong window: %q .. %q", got[0].Email.Sender, got[2].Email.Sender)
	}
}

func TestActionStoreUnknownUser(t *testing.T) {
	store := NewActionStore()
	if got := store.Recent("nobody", 10); len(got) != 0 {
		t.Fatalf("expected empty history for unknown user, got %d entries", len(got))
	}
}

func TestActionStoreCounters(t *testing.T) {
	store := NewActionStore()
	store.Record(testAction("u1", ActionArchive, "a@b.com"))
	store.Record(testAction("u1", ActionArchive, "a@b.com"))
	store.Record(testAction("u2", ActionStar, "c@d.com"))

	if got := store.UserCount(); got != 2 {
		t.Errorf("UserCount = %d, want 2", got)
	}
	if got := store.TotalActions(); got != 3 {
		t.Errorf("TotalActions = %d, want 3", got)
	}
	if got := store.Count("u1"); got != 2 {
		t.Errorf("Count(u1) = %d, want 2", got)
	}
}
