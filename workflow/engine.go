package workflow

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Options are the tunables the engine exposes; zero values fall back to the
// reference constants.
type Options struct {
	DebounceDelay time.Duration
	MinConfidence float64
	Chat          ChatCompleter
	Logger        *logrus.Entry
}

const (
	defaultDebounceDelay = time.Second
	defaultMinConfidence = 0.8
)

// Engine wires the workflow components into the three inbound flows:
// user actions, suggestion responses and email events. One engine per
// process; handlers share it.
type Engine struct {
	actions     *ActionStore
	trigger     *PatternTrigger
	debouncer   *Debouncer
	suggestions *SuggestionEngine
	cache       *SuggestionCache
	hooks       *HookStore
	executor    *HookExecutor
	manager     *ConnectionManager
	log         *logrus.Entry
}

func NewEngine(opts Options) *Engine {
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = defaultDebounceDelay
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = defaultMinConfidence
	}
	log := opts.Logger
	if log == nil {
		log = logrus.WithField("component", "workflow")
	}

	e := &Engine{
		actions: NewActionStore(),
		cache:   NewSuggestionCache(),
		hooks:   NewHookStore(),
		log:     log,
	}
	e.trigger = NewPatternTrigger(e.actions)
	e.manager = NewConnectionManager(log)
	e.suggestions = NewSuggestionEngine(e.actions, e.hooks, e.cache, opts.Chat, opts.MinConfidence, log)
	e.executor = NewHookExecutor(e.hooks, e.manager, log)
	e.debouncer = NewDebouncer(opts.DebounceDelay, e.analyzeAndNotify)
	return e
}

// Connections exposes the connection manager for the websocket handler.
func (e *Engine) Connections() *ConnectionManager { return e.manager }

// Actions exposes the action store for the REST collaborators.
func (e *Engine) Actions() *ActionStore { return e.actions }

// Hooks exposes the hook store for the REST collaborators.
func (e *Engine) Hooks() *HookStore { return e.hooks }

// Suggestions exposes the pending-suggestion cache (reaper, stats).
func (e *Engine) Suggestions() *SuggestionCache { return e.cache }

// HandleAction records an inbound user action and, when it qualifies,
// schedules the debounced pattern analysis. Returns the stored action id.
func (e *Engine) HandleAction(action UserAction) string {
	if action.Timestamp.IsZero() {
		action.Timestamp = time.Now()
	}
	id := e.actions.Record(action)
	action.ID = id

	e.log.WithFields(logrus.Fields{
		"user_id": action.UserID,
		"action":  action.Action,
		"sender":  action.Email.Sender,
	}).Debug("stored user action")

	if e.trigger.ShouldAnalyze(action.UserID, action) {
		e.debouncer.Schedule(action.UserID, action)
	}
	return id
}

// analyzeAndNotify is the debounced tail of the action flow: run the
// suggestion analysis and push any result to all of the user's sessions.
func (e *Engine) analyzeAndNotify(ctx context.Context, userID string, action UserAction) {
	suggestion := e.suggestions.Analyze(ctx, userID, action)
	if suggestion == nil {
		return
	}
	if ctx.Err() != nil {
		// Superseded while the analysis was in flight: pull the cache entry
		// back out and discard quietly.
		e.cache.Take(suggestion.ID)
		e.log.WithField("user_id", userID).Debug("discarded stale suggestion")
		return
	}

	e.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"description": suggestion.Description,
		"confidence":  suggestion.Confidence,
	}).Info("generated workflow suggestion")

	e.manager.Notify(userID, Envelope{
		Type: "workflow_suggestion",
		Data: suggestionPayload(suggestion),
	})
}

// suggestionPayload is the client-facing shape; the rule plan travels in the
// generated_function field as JSON.
func suggestionPayload(s *Suggestion) map[string]interface{} {
	return map[string]interface{}{
		"id":                 s.ID,
		"description":        s.Description,
		"confidence":         s.Confidence,
		"reasoning":          s.Reasoning,
		"generated_function": s.Rule,
		"trigger_event":      s.TriggerEvent,
	}
}

// HandleSuggestionResponse resolves a pending suggestion. Accepting persists
// a hook and confirms back on the responding session; any response, accept or
// not, evicts the suggestion from the cache. Returns the created hook, if any.
func (e *Engine) HandleSuggestionResponse(userID, sessionID, suggestionID string, accepted bool) *Hook {
	suggestion, ok := e.cache.Take(suggestionID)
	if !ok || !accepted {
		return nil
	}

	hook := e.hooks.Persist(userID, suggestion)
	e.log.WithFields(logrus.Fields{
		"user_id": userID,
		"hook_id": hook.ID,
	}).Info("persisted workflow hook")

	e.manager.NotifySession(userID, sessionID, Envelope{
		Type: "suggestion_accepted",
		Data: map[string]interface{}{
			"message":       "Automation rule created!",
			"hook_id":       hook.ID,
			"description":   hook.Description,
			"trigger_event": hook.TriggerEvent,
		},
	})
	return &hook
}

// HandleEmailEvent fires the user's matching hooks for a live email event.
func (e *Engine) HandleEmailEvent(userID string, event TriggerEvent, email EmailRef, evctx EventContext) []ExecutionResult {
	return e.executor.Fire(userID, event, email, evctx)
}

// Stats is the aggregate snapshot served by the stats endpoint.
type Stats struct {
	Users              int `json:"total_users"`
	Actions            int `json:"total_actions"`
	Hooks              int `json:"total_hooks"`
	Executions         int `json:"total_executions"`
	ActiveConnections  int `json:"active_connections"`
	PendingSuggestions int `json:"pending_suggestions"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		Users:              e.actions.UserCount(),
		Actions:            e.actions.TotalActions(),
		Hooks:              e.hooks.TotalHooks(),
		Executions:         e.hooks.TotalExecutions(),
		ActiveConnections:  e.manager.ActiveConnections(),
		PendingSuggestions: e.cache.Len(),
	}
}
