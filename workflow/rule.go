package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// TriggerEvent names the occasion that makes a hook eligible to run.
type TriggerEvent string

const (
	TriggerEmailReceived TriggerEvent = "email_received"
	TriggerEmailClosed   TriggerEvent = "email_closed"
	TriggerUserAction    TriggerEvent = "user_action"
)

// Condition gates a rule on one field of the firing email or its context.
// Exactly the fields below are addressable; at least one matcher must be set.
type Condition struct {
	Field    string `json:"field"`
	Equals   string `json:"equals,omitempty"`
	Contains string `json:"contains,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
}

// RuleStep is one tagged instruction from the closed operation set.
type RuleStep struct {
	Op  string `json:"op"`
	Arg string `json:"arg,omitempty"`
}

// RulePlan is the structured, interpretable body of a hook. Plans come from
// the suggestion engine (LLM or fallback) and are never executed as code;
// the executor walks the steps against the email capability object.
type RulePlan struct {
	When  []Condition `json:"when,omitempty"`
	Steps []RuleStep  `json:"steps"`
}

// Matches evaluates all conditions against the email and event context.
// A plan with no conditions matches everything.
func (p RulePlan) Matches(email EmailRef, evctx EventContext) (bool, error) {
	for _, cond := range p.When {
		ok, err := cond.match(email, evctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c Condition) match(email EmailRef, evctx EventContext) (bool, error) {
	var value string
	switch c.Field {
	case "sender":
		value = email.Sender
	case "subject":
		value = email.Subject
	case "label":
		return c.matchLabel(email.Labels)
	case "is_read":
		value = strconv.FormatBool(email.IsRead)
	case "is_bulk":
		value = strconv.FormatBool(decide(email, "is_bulk"))
	case "location":
		value = evctx.Location
	case "hour":
		value = strconv.Itoa(evctx.Hour)
	case "weekday":
		value = evctx.Weekday
	default:
		return false, fmt.Errorf("rule condition references unknown field %q", c.Field)
	}
	return c.matchValue(value)
}

func (c Condition) matchLabel(labels []string) (bool, error) {
	if c.Equals == "" {
		return false, fmt.Errorf("label condition requires equals")
	}
	for _, l := range labels {
		if strings.EqualFold(l, c.Equals) {
			return true, nil
		}
	}
	return false, nil
}

func (c Condition) matchValue(value string) (bool, error) {
	switch {
	case c.Equals != "":
		return strings.EqualFold(value, c.Equals), nil
	case c.Contains != "":
		return strings.Contains(strings.ToLower(value), strings.ToLower(c.Contains)), nil
	case c.Pattern != "":
		return matchPattern(value, c.Pattern), nil
	default:
		return false, fmt.Errorf("rule condition on %q has no matcher", c.Field)
	}
}

// apply runs one step against the email capability object.
func (s RuleStep) apply(email *EmailCapability) error {
	switch s.Op {
	case "archive":
		email.Archive()
	case "delete":
		email.Delete()
	case "star":
		email.Star()
	case "unstar":
		email.Unstar()
	case "mark_read":
		email.MarkRead()
	case "mark_unread":
		email.MarkUnread()
	case "add_label":
		if s.Arg == "" {
			return fmt.Errorf("add_label requires an argument")
		}
		email.AddLabel(s.Arg)
	case "remove_label":
		if s.Arg == "" {
			return fmt.Errorf("remove_label requires an argument")
		}
		email.RemoveLabel(s.Arg)
	case "label_domain":
		domain := extract(email.Email, "domain")
		if domain == "" {
			return fmt.Errorf("label_domain needs a sender with a domain")
		}
		email.AddLabel(domain)
	case "move_to_spam":
		email.MoveToSpam()
	case "move_to_trash":
		email.MoveToTrash()
	case "summarize":
		email.note("summarized: " + summarize(email.Email))
	default:
		return fmt.Errorf("rule step uses unknown operation %q", s.Op)
	}
	return nil
}

// validate rejects structurally empty or malformed plans up front.
func (p RulePlan) validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("rule plan has no steps")
	}
	return nil
}
