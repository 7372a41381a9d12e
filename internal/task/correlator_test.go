package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelara/inference-gateway/internal/model"
	"github.com/avelara/inference-gateway/internal/queue"
)

// fakeLedger records completion stamps in memory, standing in for the
// MySQL-backed service call repository.
type fakeLedger struct {
	mu    sync.Mutex
	calls map[string]*model.ServiceCall
	fail  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{calls: map[string]*model.ServiceCall{}}
}

func (f *fakeLedger) add(taskID string, sc model.ServiceCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc.TaskID = &taskID
	f.calls[taskID] = &sc
}

func (f *fakeLedger) CompleteByTaskID(_ context.Context, taskID string, completedAt time.Time, success bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	sc, ok := f.calls[taskID]
	if !ok {
		return 0, nil
	}
	sc.CompletedAt = &completedAt
	sc.Success = success
	return 1, nil
}

func (f *fakeLedger) GetByTaskID(_ context.Context, taskID string) (model.ServiceCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.calls[taskID]
	if !ok {
		return model.ServiceCall{}, errors.New("not found")
	}
	return *sc, nil
}

func (f *fakeLedger) get(taskID string) model.ServiceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.calls[taskID]
}

func runCorrelator(t *testing.T, c *Correlator, comps ...Completion) {
	t.Helper()
	ch := make(chan Completion, len(comps))
	for _, comp := range comps {
		ch <- comp
	}
	close(ch)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("correlator did not drain completions")
	}
}

func TestCorrelatorStampsLedger(t *testing.T) {
	ledger := newFakeLedger()
	ledger.add("task-1", model.ServiceCall{ID: 10, ModelID: 3, UserID: 7, RequestedAt: time.Now().UTC()})

	completedAt := time.Now().UTC()
	runCorrelator(t, NewCorrelator(ledger, nil), Completion{
		TaskID:      "task-1",
		CompletedAt: completedAt,
		Success:     true,
		Result:      "done",
	})

	sc := ledger.get("task-1")
	require.NotNil(t, sc.CompletedAt)
	assert.True(t, sc.CompletedAt.Equal(completedAt))
	assert.True(t, sc.Success)
}

func TestCorrelatorStampsFailureOutcome(t *testing.T) {
	ledger := newFakeLedger()
	ledger.add("task-2", model.ServiceCall{ID: 11, ModelID: 3, UserID: 7, RequestedAt: time.Now().UTC()})

	runCorrelator(t, NewCorrelator(ledger, nil), Completion{
		TaskID:      "task-2",
		CompletedAt: time.Now().UTC(),
		Success:     false,
		Err:         "retries exhausted: boom",
	})

	sc := ledger.get("task-2")
	require.NotNil(t, sc.CompletedAt)
	assert.False(t, sc.Success)
}

func TestCorrelatorUnmatchedCompletionIsNoOp(t *testing.T) {
	ledger := newFakeLedger()
	// No ledger row for this id: the correlator must log and move on,
	// then still process the next message.
	ledger.add("task-known", model.ServiceCall{ID: 12, ModelID: 1, UserID: 2, RequestedAt: time.Now().UTC()})

	c := NewCorrelator(ledger, nil)
	c.matchDelay = time.Millisecond
	runCorrelator(t, c,
		Completion{TaskID: "task-unknown", CompletedAt: time.Now().UTC(), Success: true},
		Completion{TaskID: "task-known", CompletedAt: time.Now().UTC(), Success: true},
	)

	sc := ledger.get("task-known")
	assert.NotNil(t, sc.CompletedAt)
}

// A completion can beat the request handler that persists its
// correlation id. The correlator re-matches once after a short pause so
// the late ledger row still gets stamped.
func TestCorrelatorRematchesLateLedgerRow(t *testing.T) {
	ledger := newFakeLedger()

	c := NewCorrelator(ledger, nil)
	c.matchDelay = 50 * time.Millisecond

	go func() {
		time.Sleep(5 * time.Millisecond)
		ledger.add("task-5", model.ServiceCall{ID: 15, ModelID: 2, UserID: 4, RequestedAt: time.Now().UTC()})
	}()

	completedAt := time.Now().UTC()
	runCorrelator(t, c, Completion{TaskID: "task-5", CompletedAt: completedAt, Success: true})

	sc := ledger.get("task-5")
	require.NotNil(t, sc.CompletedAt)
	assert.True(t, sc.Success)
}

func TestCorrelatorPublishesEvent(t *testing.T) {
	ledger := newFakeLedger()
	requestedAt := time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)
	ledger.add("task-3", model.ServiceCall{ID: 13, ModelID: 5, UserID: 9, RequestedAt: requestedAt})

	var published []queue.InferenceCompletedEvent
	var mu sync.Mutex
	pub := func(_ context.Context, ev queue.InferenceCompletedEvent) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, ev)
		return nil
	}

	runCorrelator(t, NewCorrelator(ledger, pub), Completion{
		TaskID:      "task-3",
		CompletedAt: requestedAt.Add(2 * time.Second),
		Success:     true,
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, published, 1)
	assert.Equal(t, "task-3", published[0].TaskID)
	assert.Equal(t, uint64(5), published[0].ModelID)
	assert.Equal(t, uint64(9), published[0].UserID)
	assert.True(t, published[0].Success)
	assert.Equal(t, requestedAt.Format(time.RFC3339), published[0].RequestedAt)
}

func TestCorrelatorPublishFailureIsNotFatal(t *testing.T) {
	ledger := newFakeLedger()
	ledger.add("task-4", model.ServiceCall{ID: 14, ModelID: 1, UserID: 1, RequestedAt: time.Now().UTC()})

	pub := func(_ context.Context, _ queue.InferenceCompletedEvent) error {
		return errors.New("broker down")
	}
	runCorrelator(t, NewCorrelator(ledger, pub), Completion{
		TaskID:      "task-4",
		CompletedAt: time.Now().UTC(),
		Success:     true,
	})

	sc := ledger.get("task-4")
	assert.NotNil(t, sc.CompletedAt, "ledger stamped even when publish fails")
}
