package workflow

import (
	"fmt"
	"testing"
)

func TestShouldAnalyze(t *testing.T) {
	tests := []struct {
		name    string
		history int
		kind    ActionKind
		want    bool
	}{
		{"intentional with enough history", 4, ActionArchive, true},
		{"intentional at the floor", 3, ActionArchive, false},
		{"intentional below the floor", 1, ActionDelete, false},
		{"star with enough history", 10, ActionStar, true},
		{"label with enough history", 10, ActionLabel, true},
		{"open is passive", 10, ActionOpen, false},
		{"close is passive", 10, ActionClose, false},
		{"mark_read is passive", 10, ActionMarkRead, false},
		{"mark_unread is intentional", 10, ActionMarkUnread, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewActionStore()
			for i := 0; i < tt.history; i++ {
				store.Record(testAction("u1", tt.kind, fmt.Sprintf("s%d@x.com", i)))
			}
			trigger := NewPatternTrigger(store)

			got := trigger.ShouldAnalyze("u1", testAction("u1", tt.kind, "last@x.com"))
			if got != tt.want {
				t.Fatalf("ShouldAnalyze = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldAnalyzeIsPerUser(t *testing.T) {
	store := NewActionStore()
	for i := 0; i < 10; i++ {
		store.Record(testAction("busy", ActionArchive, "a@b.com"))
	}
	trigger := NewPatternTrigger(store)

	if trigger.ShouldAnalyze("idle", testAction("idle", ActionArchive, "a@b.com")) {
		t.Fatal("user with no history should not trigger analysis")
	}
}
