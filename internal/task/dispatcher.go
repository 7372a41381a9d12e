// Package task implements the asynchronous execution layer: a worker
// pool that runs registered model callables, a non-blocking status store
// polled by clients, and a correlator that stamps completions back onto
// the service call ledger.
package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avelara/inference-gateway/internal/registry"
)

// State of one dispatched job, mirrored to clients by the task status
// endpoint.
type State string

const (
	StatePending State = "PENDING"
	StateSuccess State = "SUCCESS"
	StateFailure State = "FAILURE"
)

// Status is a point-in-time snapshot of a job. Result is set only on
// success, Err only on failure.
type Status struct {
	State  State
	Result any
	Err    string
}

// Completion is emitted exactly once per job, success or failure. The
// correlator consumes these to update the ledger.
type Completion struct {
	TaskID      string
	CompletedAt time.Time
	Success     bool
	Result      any
	Err         string
}

// ErrQueueFull is returned by Dispatch when the job queue cannot accept
// more work. Callers surface it as a server-side failure.
var ErrQueueFull = errors.New("task queue full")

type job struct {
	taskID  string
	modelID uint64
}

// Options tune the dispatcher. Zero values fall back to the defaults
// noted per field.
type Options struct {
	Workers     int           // worker goroutines (default 4)
	MaxAttempts int           // attempts per job incl. the first (default 3)
	BackoffBase time.Duration // first retry delay, doubled per retry (default 100ms)
	QueueSize   int           // buffered jobs before Dispatch rejects (default 256)
	ResultTTL   time.Duration // how long terminal statuses stay pollable (default 10m)
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 100 * time.Millisecond
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.ResultTTL <= 0 {
		o.ResultTTL = 10 * time.Minute
	}
	return o
}

// Dispatcher hands jobs to its worker pool and returns a correlation id
// immediately. Job state lives in memory for the process lifetime, like
// a result backend scoped to this instance.
type Dispatcher struct {
	reg  *registry.Registry
	opts Options

	jobs        chan job
	completions chan Completion

	mu       sync.RWMutex
	statuses map[string]Status

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewDispatcher(reg *registry.Registry, opts Options) *Dispatcher {
	opts = opts.withDefaults()
	return &Dispatcher{
		reg:         reg,
		opts:        opts,
		jobs:        make(chan job, opts.QueueSize),
		completions: make(chan Completion, opts.QueueSize),
		statuses:    make(map[string]Status),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled or
// Stop closes the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		for i := 0; i < d.opts.Workers; i++ {
			d.wg.Add(1)
			go d.worker(ctx)
		}
	})
}

// Stop closes the job queue, waits for in-flight jobs and then closes
// the completions channel so the correlator can drain and exit.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.jobs)
		d.wg.Wait()
		close(d.completions)
	})
}

// Completions returns the channel the correlator consumes. Every job
// produces exactly one message here.
func (d *Dispatcher) Completions() <-chan Completion {
	return d.completions
}

// Dispatch enqueues a run of the given model and returns its correlation
// id without waiting for execution. The id is already pollable (as
// pending) when Dispatch returns.
func (d *Dispatcher) Dispatch(modelID uint64) (string, error) {
	taskID := uuid.NewString()

	d.mu.Lock()
	d.statuses[taskID] = Status{State: StatePending}
	d.mu.Unlock()

	select {
	case d.jobs <- job{taskID: taskID, modelID: modelID}:
		return taskID, nil
	default:
		d.mu.Lock()
		delete(d.statuses, taskID)
		d.mu.Unlock()
		return "", ErrQueueFull
	}
}

// Status is a non-blocking poll, safe to call arbitrarily often. ok is
// false for ids this dispatcher never issued.
func (d *Dispatcher) Status(taskID string) (Status, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st, ok := d.statuses[taskID]
	return st, ok
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-d.jobs:
			if !ok {
				return
			}
			d.run(ctx, j)
		}
	}
}

// run executes one job to completion. An unregistered model id is a
// permanent failure and is not retried; a callable error is transient
// and retried with exponential backoff until the attempt budget is
// gone.
func (d *Dispatcher) run(ctx context.Context, j job) {
	fn, ok := d.reg.Lookup(j.modelID)
	if !ok {
		d.finish(j.taskID, Completion{
			TaskID: j.taskID,
			Err:    fmt.Sprintf("model with id %d not found", j.modelID),
		})
		return
	}

	var lastErr error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			d.finish(j.taskID, Completion{
				TaskID:  j.taskID,
				Success: true,
				Result:  result,
			})
			return
		}
		lastErr = err
		if attempt == d.opts.MaxAttempts {
			break
		}
		delay := d.opts.BackoffBase << (attempt - 1)
		log.Printf("task-worker: task %s attempt %d/%d failed: %v; retrying in %s",
			j.taskID, attempt, d.opts.MaxAttempts, err, delay)
		select {
		case <-ctx.Done():
			d.finish(j.taskID, Completion{TaskID: j.taskID, Err: ctx.Err().Error()})
			return
		case <-time.After(delay):
		}
	}
	d.finish(j.taskID, Completion{
		TaskID: j.taskID,
		Err:    fmt.Sprintf("retries exhausted: %v", lastErr),
	})
}

// finish records the terminal status and emits the completion message.
// Terminal statuses are evicted after ResultTTL so the status map does
// not grow without bound under sustained traffic.
func (d *Dispatcher) finish(taskID string, c Completion) {
	c.CompletedAt = time.Now().UTC()

	st := Status{State: StateFailure, Err: c.Err}
	if c.Success {
		st = Status{State: StateSuccess, Result: c.Result}
	}
	d.mu.Lock()
	d.statuses[taskID] = st
	d.mu.Unlock()

	time.AfterFunc(d.opts.ResultTTL, func() {
		d.mu.Lock()
		delete(d.statuses, taskID)
		d.mu.Unlock()
	})

	d.completions <- c
}
