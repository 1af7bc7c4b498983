package worker

import (
	"context"
	"log"
	"time"

	"fmail/workflow"
)

// ReaperWorker periodically evicts pending suggestions the user never
// answered. Without it the suggestion cache only shrinks on accept/reject
// and grows until restart.
type ReaperWorker struct {
	cache  *workflow.SuggestionCache
	ttl    time.Duration
	logger *log.Logger
}

func NewReaperWorker(cache *workflow.SuggestionCache, ttl time.Duration, logger *log.Logger) *ReaperWorker {
	return &ReaperWorker{
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (rw *ReaperWorker) Start(ctx context.Context) {
	rw.logger.Printf("Suggestion reaper started (TTL %s)", rw.ttl)

	ticker := time.NewTicker(rw.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.logger.Println("Suggestion reaper shutting down...")
			return
		case <-ticker.C:
			if evicted := rw.cache.EvictOlderThan(time.Now().Add(-rw.ttl)); evicted > 0 {
				rw.logger.Printf("Evicted %d expired suggestions", evicted)
			}
		}
	}
}
