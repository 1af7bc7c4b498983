package workflow

import (
	"testing"
	"time"
)

func newTestEngine(chat ChatCompleter) *Engine {
	return NewEngine(Options{
		DebounceDelay: 10 * time.Millisecond,
		MinConfidence: 0.8,
		Chat:          chat,
	})
}

func waitForEnvelope(t *testing.T, s *fakeSession, msgType string) Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, env := range s.received() {
			if env.Type == msgType {
				return env
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s envelope; got %+v", msgType, s.received())
	return Envelope{}
}

func TestEngineSuggestsAfterRepeatedActions(t *testing.T) {
	engine := newTestEngine(nil)
	session := &fakeSession{}
	engine.Connections().Connect("u1", "s1", session)

	for i := 0; i < 5; i++ {
		engine.HandleAction(testAction("u1", ActionArchive, "news@letter.com"))
	}

	env := waitForEnvelope(t, session, "workflow_suggestion")
	payload := env.Data.(map[string]interface{})
	if payload["confidence"] != 0.8 {
		t.Errorf("confidence = %v, want 0.8", payload["confidence"])
	}
	if payload["id"] == "" {
		t.Error("suggestion payload missing id")
	}
	if _, ok := payload["generated_function"]; !ok {
		t.Error("suggestion payload missing generated_function")
	}

	if engine.Suggestions().Len() != 1 {
		t.Errorf("pending suggestions = %d, want 1", engine.Suggestions().Len())
	}
}

func TestHandleActionSchedulesStoredAction(t *testing.T) {
	engine := newTestEngine(nil)
	rec := newAnalysisRecorder()
	engine.debouncer = NewDebouncer(time.Millisecond, rec.analyze)

	// Only the fourth action clears the analysis floor, so exactly one
	// schedule happens.
	var lastID string
	for i := 0; i < 4; i++ {
		lastID = engine.HandleAction(testAction("u1", ActionArchive, "a@b.com"))
	}
	rec.wait(t, time.Second)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("analysis ran %d times, want 1", len(calls))
	}
	if calls[0].ID == "" || calls[0].ID != lastID {
		t.Fatalf("scheduled action has id %q, want the stored id %q", calls[0].ID, lastID)
	}
}

func TestEngineDoesNotSuggestBelowFloor(t *testing.T) {
	engine := newTestEngine(nil)
	session := &fakeSession{}
	engine.Connections().Connect("u1", "s1", session)

	for i := 0; i < 3; i++ {
		engine.HandleAction(testAction("u1", ActionArchive, "news@letter.com"))
	}

	time.Sleep(50 * time.Millisecond)
	if got := len(session.received()); got != 0 {
		t.Fatalf("received %d envelopes below the action floor, want 0", got)
	}
}

func suggestThenRespond(t *testing.T, accepted bool) (*Engine, *Hook, *fakeSession) {
	t.Helper()
	engine := newTestEngine(nil)
	session := &fakeSession{}
	engine.Connections().Connect("u1", "s1", session)

	for i := 0; i < 5; i++ {
		engine.HandleAction(testAction("u1", ActionArchive, "news@letter.com"))
	}
	env := waitForEnvelope(t, session, "workflow_suggestion")
	id := env.Data.(map[string]interface{})["id"].(string)

	hook := engine.HandleSuggestionResponse("u1", "s1", id, accepted)
	return engine, hook, session
}

func TestEngineAcceptPersistsHook(t *testing.T) {
	engine, hook, session := suggestThenRespond(t, true)

	if hook == nil {
		t.Fatal("accepting a suggestion must return the persisted hook")
	}
	if !hook.Enabled || hook.ExecutionCount != 0 {
		t.Errorf("new hook state wrong: enabled=%v count=%d", hook.Enabled, hook.ExecutionCount)
	}
	if engine.Suggestions().Len() != 0 {
		t.Error("accepted suggestion still pending")
	}
	if got := len(engine.Hooks().List("u1")); got != 1 {
		t.Fatalf("user has %d hooks, want 1", got)
	}

	env := waitForEnvelope(t, session, "suggestion_accepted")
	data := env.Data.(map[string]interface{})
	if data["hook_id"] != hook.ID {
		t.Errorf("confirmation hook_id = %v, want %s", data["hook_id"], hook.ID)
	}
	if data["message"] != "Automation rule created!" {
		t.Errorf("confirmation message = %v", data["message"])
	}
}

func TestEngineRejectDiscardsSuggestion(t *testing.T) {
	engine, hook, _ := suggestThenRespond(t, false)

	if hook != nil {
		t.Fatal("rejecting a suggestion must not create a hook")
	}
	if engine.Suggestions().Len() != 0 {
		t.Error("rejected suggestion still pending")
	}
	if got := len(engine.Hooks().List("u1")); got != 0 {
		t.Fatalf("user has %d hooks after reject, want 0", got)
	}
}

func TestEngineUnknownSuggestionResponse(t *testing.T) {
	engine := newTestEngine(nil)
	if hook := engine.HandleSuggestionResponse("u1", "s1", "never-issued", true); hook != nil {
		t.Fatal("responding to an unknown suggestion must be a no-op")
	}
}

func TestEngineAcceptedHookFiresOnEmailEvent(t *testing.T) {
	engine, hook, session := suggestThenRespond(t, true)

	email := EmailRef{ID: "m9", Sender: "news@letter.com", Subject: "digest"}
	results := engine.HandleEmailEvent("u1", TriggerEmailReceived,
		email, NewEventContext("u1", "s1", "home"))

	if len(results) != 1 || results[0].HookID != hook.ID {
		t.Fatalf("HandleEmailEvent results = %+v", results)
	}
	if len(results[0].Actions) != 1 || results[0].Actions[0] != "archived" {
		t.Fatalf("Actions = %v, want [archived]", results[0].Actions)
	}

	env := waitForEnvelope(t, session, "workflow_notification")
	data := env.Data.(map[string]interface{})
	if data["type"] != "workflow_executed" {
		t.Errorf("notification type = %v", data["type"])
	}
}

func TestEngineStats(t *testing.T) {
	engine, _, _ := suggestThenRespond(t, true)

	stats := engine.Stats()
	if stats.Users != 1 {
		t.Errorf("Users = %d, want 1", stats.Users)
	}
	if stats.Actions != 5 {
		t.Errorf("Actions = %d, want 5", stats.Actions)
	}
	if stats.Hooks != 1 {
		t.Errorf("Hooks = %d, want 1", stats.Hooks)
	}
	if stats.ActiveConnections != 1 {
		t.Errorf("ActiveConnections = %d, want 1", stats.ActiveConnections)
	}
	if stats.PendingSuggestions != 0 {
		t.Errorf("PendingSuggestions = %d, want 0", stats.PendingSuggestions)
	}
}

func TestEngineDefaults(t *testing.T) {
	engine := NewEngine(Options{})
	if engine.debouncer.delay != time.Second {
		t.Errorf("default debounce = %v, want 1s", engine.debouncer.delay)
	}
	if engine.suggestions.minConfidence != 0.8 {
		t.Errorf("default min confidence = %v, want 0.8", engine.suggestions.minConfidence)
	}
}
