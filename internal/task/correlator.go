package task

import (
	"context"
	"log"
	"time"

	"github.com/avelara/inference-gateway/internal/model"
	"github.com/avelara/inference-gateway/internal/queue"
)

// LedgerStore is the slice of the service call repository the correlator
// needs. It runs outside any request, so the store must acquire its own
// connections internally (database/sql pools do).
type LedgerStore interface {
	CompleteByTaskID(ctx context.Context, taskID string, completedAt time.Time, success bool) (int64, error)
	GetByTaskID(ctx context.Context, taskID string) (model.ServiceCall, error)
}

// Publisher sends a completion event to the message broker. It is
// best-effort: a returned error is logged and otherwise ignored.
type Publisher func(ctx context.Context, ev queue.InferenceCompletedEvent) error

// Correlator consumes worker completions and stamps them onto the
// ledger. A single Run loop gives one ordered consumption point instead
// of fire-and-forget updates from inside worker callbacks.
type Correlator struct {
	store      LedgerStore
	publish    Publisher     // may be nil
	matchDelay time.Duration // pause before the second match attempt
}

func NewCorrelator(store LedgerStore, publish Publisher) *Correlator {
	return &Correlator{store: store, publish: publish, matchDelay: 250 * time.Millisecond}
}

// Run processes completions until the channel closes or ctx is
// cancelled. Callers run it on its own goroutine.
func (c *Correlator) Run(ctx context.Context, completions <-chan Completion) {
	for {
		select {
		case <-ctx.Done():
			return
		case comp, ok := <-completions:
			if !ok {
				return
			}
			c.handle(ctx, comp)
		}
	}
}

// handle stamps one completion. A completion can briefly race the
// request handler that persists its correlation id, so a first miss gets
// one delayed re-match; a second miss is logged as an inconsistency and
// dropped rather than treated as fatal.
func (c *Correlator) handle(ctx context.Context, comp Completion) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := c.store.CompleteByTaskID(opCtx, comp.TaskID, comp.CompletedAt, comp.Success)
	if err != nil {
		log.Printf("correlator: complete task %s failed: %v", comp.TaskID, err)
		return
	}
	if n == 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.matchDelay):
		}
		n, err = c.store.CompleteByTaskID(opCtx, comp.TaskID, comp.CompletedAt, comp.Success)
		if err != nil {
			log.Printf("correlator: complete task %s failed: %v", comp.TaskID, err)
			return
		}
	}
	if n == 0 {
		log.Printf("correlator: inconsistency: no service call for task %s", comp.TaskID)
		return
	}

	if c.publish == nil {
		return
	}
	sc, err := c.store.GetByTaskID(opCtx, comp.TaskID)
	if err != nil {
		log.Printf("correlator: load service call for task %s failed: %v", comp.TaskID, err)
		return
	}
	ev := queue.InferenceCompletedEvent{
		TaskID:      comp.TaskID,
		ModelID:     sc.ModelID,
		UserID:      sc.UserID,
		Success:     comp.Success,
		Error:       comp.Err,
		RequestedAt: sc.RequestedAt.UTC().Format(time.RFC3339),
		CompletedAt: comp.CompletedAt.UTC().Format(time.RFC3339),
	}
	if err := c.publish(opCtx, ev); err != nil {
		log.Printf("correlator: publish completion event for task %s failed: %v", comp.TaskID, err)
	}
}
