package workflow

import (
	"strings"
	"testing"
)

func TestConditionMatch(t *testing.T) {
	email := EmailRef{
		ID:      "m1",
		Sender:  "News@Letter.com",
		Subject: "Weekly Digest #42",
		Labels:  []string{"inbox", "Newsletters"},
		IsRead:  false,
	}
	evctx := EventContext{Location: "home", Hour: 9, Weekday: "Monday"}

	tests := []struct {
		name    string
		cond    Condition
		want    bool
		wantErr bool
	}{
		{"sender equals, case folded", Condition{Field: "sender", Equals: "news@letter.com"}, true, false},
		{"sender equals mismatch", Condition{Field: "sender", Equals: "other@x.com"}, false, false},
		{"subject contains", Condition{Field: "subject", Contains: "digest"}, true, false},
		{"subject contains mismatch", Condition{Field: "subject", Contains: "invoice"}, false, false},
		{"subject named pattern", Condition{Field: "subject", Pattern: "newsletter"}, true, false},
		{"subject literal pattern", Condition{Field: "subject", Pattern: "#42"}, true, false},
		{"label equals, case folded", Condition{Field: "label", Equals: "newsletters"}, true, false},
		{"label mismatch", Condition{Field: "label", Equals: "archive"}, false, false},
		{"label without equals", Condition{Field: "label", Contains: "news"}, false, true},
		{"is_read", Condition{Field: "is_read", Equals: "false"}, true, false},
		{"is_bulk true for newsletter", Condition{Field: "is_bulk", Equals: "true"}, true, false},
		{"location", Condition{Field: "location", Equals: "home"}, true, false},
		{"hour", Condition{Field: "hour", Equals: "9"}, true, false},
		{"weekday", Condition{Field: "weekday", Equals: "monday"}, true, false},
		{"unknown field", Condition{Field: "moon_phase", Equals: "full"}, false, true},
		{"no matcher", Condition{Field: "sender"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cond.match(email, evctx)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if got != tt.want {
				t.Fatalf("match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRulePlanMatches(t *testing.T) {
	email := EmailRef{Sender: "a@b.com", Subject: "sale today"}
	evctx := EventContext{Location: "work"}

	tests := []struct {
		name string
		when []Condition
		want bool
	}{
		{"no conditions matches everything", nil, true},
		{"all conditions hold", []Condition{
			{Field: "sender", Equals: "a@b.com"},
			{Field: "location", Equals: "work"},
		}, true},
		{"one condition fails", []Condition{
			{Field: "sender", Equals: "a@b.com"},
			{Field: "location", Equals: "home"},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := RulePlan{When: tt.when, Steps: []RuleStep{{Op: "archive"}}}
			got, err := plan.Matches(email, evctx)
			if err != nil {
				t.Fatalf("Matches: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuleStepApply(t *testing.T) {
	tests := []struct {
		name       string
		step       RuleStep
		wantErr    bool
		wantAction string
	}{
		{"archive", RuleStep{Op: "archive"}, false, "archived"},
		{"delete", RuleStep{Op: "delete"}, false, "deleted"},
		{"star", RuleStep{Op: "star"}, false, "starred"},
		{"mark_read", RuleStep{Op: "mark_read"}, false, "marked read"},
		{"add_label", RuleStep{Op: "add_label", Arg: "work"}, false, "labeled work"},
		{"add_label without arg", RuleStep{Op: "add_label"}, true, ""},
		{"remove_label without arg", RuleStep{Op: "remove_label"}, true, ""},
		{"label_domain", RuleStep{Op: "label_domain"}, false, "labeled b.com"},
		{"move_to_spam", RuleStep{Op: "move_to_spam"}, false, "moved to spam"},
		{"summarize", RuleStep{Op: "summarize"}, false, "summarized:"},
		{"unknown op", RuleStep{Op: "launch_rockets"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cap := NewEmailCapability(EmailRef{Sender: "a@b.com", Subject: "hello"})
			err := tt.step.apply(cap)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			taken := cap.ActionsTaken()
			if len(taken) != 1 || !strings.HasPrefix(taken[0], tt.wantAction) {
				t.Fatalf("audit trail = %v, want prefix %q", taken, tt.wantAction)
			}
		})
	}
}

func TestLabelDomainNeedsSenderDomain(t *testing.T) {
	cap := NewEmailCapability(EmailRef{Sender: "no-at-sign"})
	if err := (RuleStep{Op: "label_domain"}).apply(cap); err == nil {
		t.Fatal("expected an error for a sender without a domain")
	}
}

func TestEmailCapabilityState(t *testing.T) {
	cap := NewEmailCapability(EmailRef{Labels: []string{"inbox"}})

	cap.MarkRead()
	if !cap.Email.IsRead {
		t.Error("MarkRead did not set IsRead")
	}
	cap.MarkUnread()
	if cap.Email.IsRead {
		t.Error("MarkUnread did not clear IsRead")
	}

	cap.AddLabel("work")
	cap.AddLabel("work") // duplicate is ignored
	cap.RemoveLabel("inbox")
	cap.RemoveLabel("never-there") // silent

	if len(cap.Email.Labels) != 1 || cap.Email.Labels[0] != "work" {
		t.Errorf("Labels = %v, want [work]", cap.Email.Labels)
	}

	want := []string{"marked read", "marked unread", "labeled work", "unlabeled inbox"}
	got := cap.ActionsTaken()
	if len(got) != len(want) {
		t.Fatalf("audit trail = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("audit trail[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRulePlanValidate(t *testing.T) {
	if err := (RulePlan{}).validate(); err == nil {
		t.Error("plan with no steps must not validate")
	}
	if err := (RulePlan{Steps: []RuleStep{{Op: "archive"}}}).validate(); err != nil {
		t.Errorf("valid plan rejected: %v", err)
	}
}
