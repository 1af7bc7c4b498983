package workflow

import (
	"context"
	"sync"
	"time"
)

// AnalyzeFunc runs the deferred analysis for one user. The context is
// cancelled when a newer action supersedes this run.
type AnalyzeFunc func(ctx context.Context, userID string, action UserAction)

// Debouncer coalesces action bursts into a single deferred analysis per
// user. Scheduling cancels any pending run for the same user; only the last
// action in a burst reaches the analyze function, with the full history
// accumulated by then.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]*debounceTask
	delay   time.Duration
	analyze AnalyzeFunc
}

type debounceTask struct {
	cancel context.CancelFunc
}

func NewDebouncer(delay time.Duration, analyze AnalyzeFunc) *Debouncer {
	return &Debouncer{
		pending: make(map[string]*debounceTask),
		delay:   delay,
		analyze: analyze,
	}
}

// Schedule replaces any pending analysis for the user with a new one delayed
// by the debounce window.
func (d *Debouncer) Schedule(userID string, action UserAction) {
	ctx, cancel := context.WithCancel(context.Background())
	task := &debounceTask{cancel: cancel}

	d.mu.Lock()
	if old, ok := d.pending[userID]; ok {
		old.cancel()
	}
	d.pending[userID] = task
	d.mu.Unlock()

	go d.run(ctx, task, userID, action)
}

func (d *Debouncer) run(ctx context.Context, task *debounceTask, userID string, action UserAction) {
	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	// The timer may have fired in the same instant a newer action arrived.
	// Re-check that this task is still the registered one before doing
	// anything externally visible.
	if !d.isCurrent(userID, task) || ctx.Err() != nil {
		return
	}

	d.analyze(ctx, userID, action)

	d.mu.Lock()
	if d.pending[userID] == task {
		delete(d.pending, userID)
	}
	d.mu.Unlock()
}

func (d *Debouncer) isCurrent(userID string, task *debounceTask) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[userID] == task
}

// PendingCount reports how many users have an analysis scheduled.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
