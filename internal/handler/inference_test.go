package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelara/inference-gateway/internal/registry"
	"github.com/avelara/inference-gateway/internal/task"
)

func newStatusContext(e *echo.Echo, taskID string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/inference/task_status/:task_id")
	c.SetParamNames("task_id")
	c.SetParamValues(taskID)
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTaskStatusUnknownTask(t *testing.T) {
	d := task.NewDispatcher(registry.New(), task.Options{})
	h := &InferenceHandler{Dispatcher: d}

	e := echo.New()
	c, rec := newStatusContext(e, "no-such-task")
	require.NoError(t, h.TaskStatus(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskStatusLifecycle(t *testing.T) {
	block := make(chan struct{})
	reg := registry.New()
	reg.Register(1, func() (any, error) {
		<-block
		return "classified", nil
	})
	d := task.NewDispatcher(reg, task.Options{Workers: 1, QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	taskID, err := d.Dispatch(1)
	require.NoError(t, err)

	h := &InferenceHandler{Dispatcher: d}
	e := echo.New()

	// Still running: pending, no result or error key.
	c, rec := newStatusContext(e, taskID)
	require.NoError(t, h.TaskStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(task.StatePending), body["state"])
	assert.NotContains(t, body, "result")

	close(block)
	// Drain the completion so the status store is settled.
	select {
	case <-d.Completions():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	c, rec = newStatusContext(e, taskID)
	require.NoError(t, h.TaskStatus(c))
	body = decodeBody(t, rec)
	assert.Equal(t, string(task.StateSuccess), body["state"])
	assert.Equal(t, "classified", body["result"])
}

func TestTaskStatusFailureCarriesError(t *testing.T) {
	d := task.NewDispatcher(registry.New(), task.Options{Workers: 1, QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	taskID, err := d.Dispatch(99) // not registered
	require.NoError(t, err)
	select {
	case <-d.Completions():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	h := &InferenceHandler{Dispatcher: d}
	e := echo.New()
	c, rec := newStatusContext(e, taskID)
	require.NoError(t, h.TaskStatus(c))
	body := decodeBody(t, rec)
	assert.Equal(t, string(task.StateFailure), body["state"])
	assert.Contains(t, body["error"], "not found")
}
