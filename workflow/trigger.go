package workflow

// intentionalKinds are the action kinds deliberate enough to justify an
// analysis pass. Open/close/mark_read are passive signals and stay excluded.
var intentionalKinds = map[ActionKind]bool{
	ActionStar:       true,
	ActionUnstar:     true,
	ActionDelete:     true,
	ActionArchive:    true,
	ActionLabel:      true,
	ActionMarkUnread: true,
}

// minActionsBeforeAnalysis is the floor a user must exceed before any
// analysis is considered.
const minActionsBeforeAnalysis = 3

// PatternTrigger decides whether an incoming action warrants scheduling the
// deeper (LLM-backed) pattern analysis. Repetition counting itself is left to
// the suggestion engine.
type PatternTrigger struct {
	store *ActionStore
}

func NewPatternTrigger(store *ActionStore) *PatternTrigger {
	return &PatternTrigger{store: store}
}

// ShouldAnalyze reports whether the user's history plus this action justify
// an analysis run.
func (t *PatternTrigger) ShouldAnalyze(userID string, action UserAction) bool {
	if !intentionalKinds[action.Action] {
		return false
	}
	return t.store.Count(userID) > minActionsBeforeAnalysis
}
