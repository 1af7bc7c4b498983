package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Suggestion is a proposed, not-yet-persisted automation awaiting user
// accept/reject over the socket.
type Suggestion struct {
	ID           string       `json:"id"`
	Description  string       `json:"description"`
	Confidence   float64      `json:"confidence"`
	Reasoning    string       `json:"reasoning"`
	Rule         RulePlan     `json:"rule"`
	PatternType  string       `json:"pattern_type"`
	TriggerEvent TriggerEvent `json:"trigger_event"`
	CreatedAt    time.Time    `json:"created_at"`
}

// SuggestionCache holds pending suggestions until the user accepts or
// rejects them. Unanswered entries are reaped by a TTL sweep.
type SuggestionCache struct {
	mu      sync.Mutex
	pending map[string]*Suggestion
}

func NewSuggestionCache() *SuggestionCache {
	return &SuggestionCache{
		pending: make(map[string]*Suggestion),
	}
}

func (c *SuggestionCache) Put(s *Suggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[s.ID] = s
}

// Take removes and returns the suggestion, if present.
func (c *SuggestionCache) Take(id string) (*Suggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	return s, ok
}

func (c *SuggestionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// EvictOlderThan drops pending suggestions created before the cutoff and
// returns how many were removed.
func (c *SuggestionCache) EvictOlderThan(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, s := range c.pending {
		if s.CreatedAt.Before(cutoff) {
			delete(c.pending, id)
			evicted++
		}
	}
	return evicted
}

// ChatCompleter is the slice of the LLM client the engine needs: one JSON-mode
// chat completion. Satisfied by utils.ChatClient and by test fakes.
type ChatCompleter interface {
	CompleteJSON(ctx context.Context, system string, user interface{}) ([]byte, error)
}

// SuggestionEngine turns recent action history into automation suggestions,
// preferring the LLM and degrading to a deterministic sender/action heuristic.
type SuggestionEngine struct {
	store         *ActionStore
	hooks         *HookStore
	cache         *SuggestionCache
	chat          ChatCompleter
	minConfidence float64
	log           *logrus.Entry
}

// Analysis window sizes: the LLM sees the recent tail, the fallback counts
// over a wider window.
const (
	llmHistoryWindow   = 20
	fallbackWindow     = 50
	fallbackMinRepeats = 3
	fallbackConfidence = 0.8
)

func NewSuggestionEngine(store *ActionStore, hooks *HookStore, cache *SuggestionCache, chat ChatCompleter, minConfidence float64, log *logrus.Entry) *SuggestionEngine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SuggestionEngine{
		store:         store,
		hooks:         hooks,
		cache:         cache,
		chat:          chat,
		minConfidence: minConfidence,
		log:           log,
	}
}

// Analyze inspects the user's recent history around the current action and
// returns a suggestion, or nil when no pattern is worth proposing. LLM
// failures are logged and degrade to the fallback heuristic; Analyze itself
// never fails.
func (e *SuggestionEngine) Analyze(ctx context.Context, userID string, current UserAction) *Suggestion {
	if e.chat != nil {
		if s := e.analyzeWithLLM(ctx, userID, current); s != nil {
			e.cache.Put(s)
			return s
		}
		// The LLM path caches nothing on its own; a nil here means either
		// "no pattern" or a swallowed failure. Both fall through.
	}

	if s := e.analyzeFallback(userID, current); s != nil {
		e.cache.Put(s)
		return s
	}
	return nil
}

const analysisSystemPrompt = `You are an email automation assistant. Analyze the user's recent email actions and decide whether to suggest an automation rule.

Respond with a JSON object:
- "should_suggest": boolean
- "description": short user-facing question, e.g. "Auto-archive emails from this sender?"
- "confidence": number between 0 and 1
- "reasoning": why the pattern was detected
- "pattern_type": one of "sender_based", "subject_based", "location_based", "sequence_based"
- "trigger_event": one of "email_received", "email_closed", "user_action"
- "rule": {"when": [{"field": "...", "equals"|"contains"|"pattern": "..."}], "steps": [{"op": "...", "arg": "..."}]}

Allowed condition fields: sender, subject, label, is_read, is_bulk, location, hour, weekday.
Allowed step ops: archive, delete, star, unstar, mark_read, mark_unread, add_label, remove_label, label_domain, move_to_spam, move_to_trash, summarize.

Look for repetition: the same action on emails from the same sender, subject families (newsletters, notifications), or location-dependent behavior. Do not repeat automations the user already has.`

type llmAnalysisRequest struct {
	CurrentAction llmAction   `json:"current_action"`
	RecentActions []llmAction `json:"recent_actions"`
	ExistingHooks []string    `json:"existing_hooks"`
	Instruction   string      `json:"instruction"`
}

type llmAction struct {
	Action    ActionKind `json:"action"`
	Sender    string     `json:"sender"`
	Subject   string     `json:"subject"`
	Location  string     `json:"location"`
	Timestamp string     `json:"timestamp"`
}

type llmAnalysisResponse struct {
	ShouldSuggest bool     `json:"should_suggest"`
	Description   string   `json:"description"`
	Confidence    float64  `json:"confidence"`
	Reasoning     string   `json:"reasoning"`
	PatternType   string   `json:"pattern_type"`
	TriggerEvent  string   `json:"trigger_event"`
	Rule          RulePlan `json:"rule"`
}

func (e *SuggestionEngine) analyzeWithLLM(ctx context.Context, userID string, current UserAction) *Suggestion {
	actions := e.store.Recent(userID, llmHistoryWindow)

	request := llmAnalysisRequest{
		CurrentAction: toLLMAction(current),
		Instruction:   "User just performed an action; decide whether an automation should be suggested.",
	}
	for _, a := range actions {
		request.RecentActions = append(request.RecentActions, toLLMAction(a))
	}
	for _, hook := range e.hooks.List(userID) {
		request.ExistingHooks = append(request.ExistingHooks, hook.Description)
	}

	raw, err := e.chat.CompleteJSON(ctx, analysisSystemPrompt, request)
	if err != nil {
		e.log.WithError(err).WithField("user_id", userID).Warn("LLM analysis failed, using fallback")
		return nil
	}

	var result llmAnalysisResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		e.log.WithError(err).WithField("user_id", userID).Warn("LLM analysis response unparseable, using fallback")
		return nil
	}

	if !result.ShouldSuggest || result.Confidence < e.minConfidence {
		return nil
	}
	if err := result.Rule.validate(); err != nil {
		e.log.WithError(err).WithField("user_id", userID).Warn("LLM produced invalid rule plan, using fallback")
		return nil
	}

	trigger := TriggerEvent(result.TriggerEvent)
	switch trigger {
	case TriggerEmailReceived, TriggerEmailClosed, TriggerUserAction:
	default:
		trigger = TriggerEmailReceived
	}

	return &Suggestion{
		ID:           uuid.NewString(),
		Description:  result.Description,
		Confidence:   result.Confidence,
		Reasoning:    result.Reasoning,
		Rule:         result.Rule,
		PatternType:  result.PatternType,
		TriggerEvent: trigger,
		CreatedAt:    time.Now(),
	}
}

func toLLMAction(a UserAction) llmAction {
	return llmAction{
		Action:    a.Action,
		Sender:    a.Email.Sender,
		Subject:   a.Email.Subject,
		Location:  a.ContextString("location"),
		Timestamp: a.Timestamp.Format(time.RFC3339),
	}
}

// analyzeFallback is the deterministic path: the same action on mail from the
// same sender at least three times in the recent window earns a templated
// sender-based suggestion.
func (e *SuggestionEngine) analyzeFallback(userID string, current UserAction) *Suggestion {
	if current.Email.Sender == "" {
		return nil
	}

	occurrences := 0
	for _, a := range e.store.Recent(userID, fallbackWindow) {
		if a.Email.Sender == current.Email.Sender && a.Action == current.Action {
			occurrences++
		}
	}
	if occurrences < fallbackMinRepeats {
		return nil
	}

	return &Suggestion{
		ID:          uuid.NewString(),
		Description: fmt.Sprintf("Auto-%s emails from %s?", current.Action, current.Email.Sender),
		Confidence:  fallbackConfidence,
		Reasoning: fmt.Sprintf("You've performed %s on %d emails from this sender",
			current.Action, occurrences),
		Rule: RulePlan{
			When:  []Condition{{Field: "sender", Equals: current.Email.Sender}},
			Steps: []RuleStep{fallbackStep(current)},
		},
		PatternType:  "sender_based",
		TriggerEvent: TriggerEmailReceived,
		CreatedAt:    time.Now(),
	}
}

// fallbackStep maps the repeated action kind onto a rule step. Most kinds are
// ops themselves; labelling needs the label name carried as the argument.
func fallbackStep(current UserAction) RuleStep {
	if current.Action == ActionLabel {
		arg := "auto"
		if len(current.Email.Labels) > 0 {
			arg = current.Email.Labels[len(current.Email.Labels)-1]
		}
		return RuleStep{Op: "add_label", Arg: arg}
	}
	return RuleStep{Op: string(current.Action)}
}
