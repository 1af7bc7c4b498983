package workflow

import (
	"time"

	"github.com/sirupsen/logrus"
)

// EventContext carries the situational bindings a rule may condition on.
type EventContext struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Location  string `json:"location"`
	Hour      int    `json:"hour"`
	Weekday   string `json:"weekday"`
}

// NewEventContext fills the time-derived fields from now.
func NewEventContext(userID, sessionID, location string) EventContext {
	now := time.Now()
	return EventContext{
		UserID:    userID,
		SessionID: sessionID,
		Location:  location,
		Hour:      now.Hour(),
		Weekday:   now.Weekday().String(),
	}
}

// EmailCapability is the mutable view of an email a rule operates on. Every
// operation records itself into the audit trail, which becomes the
// execution result.
type EmailCapability struct {
	Email EmailRef
	taken []string
}

func NewEmailCapability(email EmailRef) *EmailCapability {
	return &EmailCapability{Email: email}
}

func (e *EmailCapability) note(action string) { e.taken = append(e.taken, action) }

func (e *EmailCapability) Archive() { e.note("archived") }
func (e *EmailCapability) Delete()  { e.note("deleted") }

func (e *EmailCapability) Star()   { e.note("starred") }
func (e *EmailCapability) Unstar() { e.note("unstarred") }

func (e *EmailCapability) MarkRead() {
	e.Email.IsRead = true
	e.note("marked read")
}

func (e *EmailCapability) MarkUnread() {
	e.Email.IsRead = false
	e.note("marked unread")
}

func (e *EmailCapability) AddLabel(name string) {
	for _, l := range e.Email.Labels {
		if l == name {
			return
		}
	}
	e.Email.Labels = append(e.Email.Labels, name)
	e.note("labeled " + name)
}

func (e *EmailCapability) RemoveLabel(name string) {
	for i, l := range e.Email.Labels {
		if l == name {
			e.Email.Labels = append(e.Email.Labels[:i], e.Email.Labels[i+1:]...)
			e.note("unlabeled " + name)
			return
		}
	}
}

func (e *EmailCapability) MoveToSpam()  { e.note("moved to spam") }
func (e *EmailCapability) MoveToTrash() { e.note("moved to trash") }

// ActionsTaken returns the audit trail in execution order.
func (e *EmailCapability) ActionsTaken() []string {
	out := make([]string, len(e.taken))
	copy(out, e.taken)
	return out
}

// ExecutionResult is the outcome of running one hook against one event.
type ExecutionResult struct {
	HookID      string    `json:"hook_id"`
	Description string    `json:"description"`
	Actions     []string  `json:"actions,omitempty"`
	Err         string    `json:"error,omitempty"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// HookExecutor replays enabled hooks against live email events. Hooks run
// sequentially in list order; one hook failing never stops its siblings.
type HookExecutor struct {
	hooks    *HookStore
	notifier *ConnectionManager
	log      *logrus.Entry
}

func NewHookExecutor(hooks *HookStore, notifier *ConnectionManager, log *logrus.Entry) *HookExecutor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &HookExecutor{
		hooks:    hooks,
		notifier: notifier,
		log:      log,
	}
}

// Fire runs every enabled hook bound to the event and returns one result per
// hook executed. Each success or failure is also pushed to the user's
// sessions as a workflow_notification.
func (x *HookExecutor) Fire(userID string, event TriggerEvent, email EmailRef, evctx EventContext) []ExecutionResult {
	var results []ExecutionResult

	for _, hook := range x.hooks.enabledFor(userID, event) {
		result := x.execute(userID, hook, email, evctx)
		results = append(results, result)
		x.notify(userID, result)
	}
	return results
}

func (x *HookExecutor) execute(userID string, hook Hook, email EmailRef, evctx EventContext) ExecutionResult {
	now := time.Now()
	result := ExecutionResult{
		HookID:      hook.ID,
		Description: hook.Description,
		ExecutedAt:  now,
	}

	capability := NewEmailCapability(email)
	if err := runPlan(hook.Rule, capability, evctx); err != nil {
		x.log.WithError(err).WithField("hook_id", hook.ID).Warn("hook execution failed")
		result.Err = err.Error()
		return result
	}

	result.Actions = capability.ActionsTaken()
	x.hooks.markExecuted(userID, hook.ID, now)
	return result
}

func runPlan(plan RulePlan, email *EmailCapability, evctx EventContext) error {
	if err := plan.validate(); err != nil {
		return err
	}

	ok, err := plan.Matches(email.Email, evctx)
	if err != nil {
		return err
	}
	if !ok {
		// Conditions not met: the hook ran but took no action.
		return nil
	}

	for _, step := range plan.Steps {
		if err := step.apply(email); err != nil {
			return err
		}
	}
	return nil
}

func (x *HookExecutor) notify(userID string, result ExecutionResult) {
	if x.notifier == nil {
		return
	}

	data := map[string]interface{}{
		"hook_id":     result.HookID,
		"description": result.Description,
	}
	if result.Err != "" {
		data["type"] = "workflow_error"
		data["error"] = result.Err
	} else {
		data["type"] = "workflow_executed"
		data["result"] = result.Actions
		// Undo is surfaced to the client but not implemented server-side yet.
		data["can_undo"] = true
	}

	x.notifier.Notify(userID, Envelope{Type: "workflow_notification", Data: data})
}
