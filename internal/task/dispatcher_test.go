package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelara/inference-gateway/internal/registry"
)

func newTestDispatcher(t *testing.T, reg *registry.Registry) *Dispatcher {
	t.Helper()
	d := NewDispatcher(reg, Options{
		Workers:     2,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		QueueSize:   16,
	})
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})
	return d
}

// waitCompletion drains one message from the completions channel.
func waitCompletion(t *testing.T, d *Dispatcher) Completion {
	t.Helper()
	select {
	case c := <-d.Completions():
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
		return Completion{}
	}
}

func TestDispatchRoundTrip(t *testing.T) {
	block := make(chan struct{})
	reg := registry.New()
	reg.Register(1, func() (any, error) {
		<-block
		return []float64{1, 2, 3}, nil
	})
	d := newTestDispatcher(t, reg)

	taskID, err := d.Dispatch(1)
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	// Pollable as pending while the job is still running.
	st, ok := d.Status(taskID)
	require.True(t, ok)
	assert.Equal(t, StatePending, st.State)

	close(block)
	comp := waitCompletion(t, d)
	assert.Equal(t, taskID, comp.TaskID)
	assert.True(t, comp.Success)
	assert.False(t, comp.CompletedAt.IsZero())

	st, ok = d.Status(taskID)
	require.True(t, ok)
	assert.Equal(t, StateSuccess, st.State)
	assert.Equal(t, []float64{1, 2, 3}, st.Result)
}

func TestDispatchUnknownModelFailsWithoutRetry(t *testing.T) {
	d := newTestDispatcher(t, registry.New())

	taskID, err := d.Dispatch(42)
	require.NoError(t, err)

	comp := waitCompletion(t, d)
	assert.False(t, comp.Success)
	assert.Contains(t, comp.Err, "model with id 42 not found")

	st, ok := d.Status(taskID)
	require.True(t, ok)
	assert.Equal(t, StateFailure, st.State)
	assert.Contains(t, st.Err, "not found")
}

func TestDispatchRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	reg := registry.New()
	reg.Register(1, func() (any, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("temporarily unavailable")
		}
		return "ok", nil
	})
	d := newTestDispatcher(t, reg)

	_, err := d.Dispatch(1)
	require.NoError(t, err)

	comp := waitCompletion(t, d)
	assert.True(t, comp.Success)
	assert.Equal(t, "ok", comp.Result)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDispatchExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	reg := registry.New()
	reg.Register(1, func() (any, error) {
		calls.Add(1)
		return nil, errors.New("broken callable")
	})
	d := newTestDispatcher(t, reg)

	_, err := d.Dispatch(1)
	require.NoError(t, err)

	comp := waitCompletion(t, d)
	assert.False(t, comp.Success)
	assert.Contains(t, comp.Err, "retries exhausted")
	assert.Contains(t, comp.Err, "broken callable")
	assert.Equal(t, int32(3), calls.Load(), "exactly MaxAttempts invocations")
}

func TestStatusUnknownTask(t *testing.T) {
	d := newTestDispatcher(t, registry.New())

	_, ok := d.Status("never-issued")
	assert.False(t, ok)
}

// Terminal statuses expire so the in-memory status map stays bounded
// under sustained traffic.
func TestStatusEvictedAfterResultTTL(t *testing.T) {
	reg := registry.New()
	reg.Register(1, func() (any, error) { return "ok", nil })
	d := NewDispatcher(reg, Options{
		Workers:     1,
		BackoffBase: time.Millisecond,
		QueueSize:   16,
		ResultTTL:   20 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})

	taskID, err := d.Dispatch(1)
	require.NoError(t, err)
	waitCompletion(t, d)

	st, ok := d.Status(taskID)
	require.True(t, ok, "terminal status pollable within the TTL")
	assert.Equal(t, StateSuccess, st.State)

	assert.Eventually(t, func() bool {
		_, ok := d.Status(taskID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "terminal status evicted after the TTL")
}

func TestDispatchQueueFull(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	reg := registry.New()
	reg.Register(1, func() (any, error) {
		<-block
		return nil, nil
	})
	d := NewDispatcher(reg, Options{Workers: 1, QueueSize: 1, BackoffBase: time.Millisecond})
	// Not started: nothing drains the queue, so the second enqueue must
	// be rejected rather than block the caller.
	_, err := d.Dispatch(1)
	require.NoError(t, err)
	_, err = d.Dispatch(1)
	assert.ErrorIs(t, err, ErrQueueFull)
}
