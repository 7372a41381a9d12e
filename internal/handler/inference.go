package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelara/inference-gateway/internal/middleware"
	"github.com/avelara/inference-gateway/internal/registry"
	"github.com/avelara/inference-gateway/internal/repository"
	"github.com/avelara/inference-gateway/internal/task"
)

// InferenceHandler serves the policy-gated, asynchronously dispatched
// prediction surface plus the admin endpoints that manage access
// bindings and quota policies.
type InferenceHandler struct {
	Registry   *registry.Registry
	Dispatcher *task.Dispatcher
	Access     *repository.UserAccessRepo
	Calls      *repository.ServiceCallRepo
	Models     *repository.InferenceModelRepo
	Policies   *repository.AccessPolicyRepo
	Users      *repository.UserRepo
}

type pairUserModelReq struct {
	UserID         uint64 `json:"user_id" validate:"required"`
	ModelID        uint64 `json:"model_id" validate:"required"`
	AccessPolicyID uint64 `json:"access_policy_id" validate:"required"`
}

type userAccessResp struct {
	UserID         uint64    `json:"user_id"`
	ModelID        uint64    `json:"model_id"`
	AccessPolicyID uint64    `json:"access_policy_id"`
	DailyCalls     int       `json:"daily_calls"`
	MonthlyCalls   int       `json:"monthly_calls"`
	AccessGranted  bool      `json:"access_granted"`
	LastAccessed   time.Time `json:"last_accessed"`
}

type createPolicyReq struct {
	Name            string `json:"name" validate:"required"`
	DailyAPICalls   int    `json:"daily_api_calls" validate:"required,gt=0"`
	MonthlyAPICalls int    `json:"monthly_api_calls" validate:"required,gt=0"`
}

// Predict authorizes one dispatched run of a registered model: quota
// check-and-increment, ledger row, enqueue, persist the correlation id,
// then hand the id back for polling.
func (h *InferenceHandler) Predict(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	modelID, err := strconv.ParseUint(c.Param("model_id"), 10, 64)
	if err != nil || modelID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid model id"})
	}
	if !h.Registry.Has(modelID) {
		return c.JSON(http.StatusNotFound,
			echo.Map{"error": fmt.Sprintf("model with id %d not found", modelID)})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	decision, err := h.Access.CheckAndRecord(ctx, uid, modelID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "access check failed"})
	}
	if !decision.Allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": decision.Reason})
	}

	callID, err := h.Calls.Create(ctx, modelID, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger write failed"})
	}

	taskID, err := h.Dispatcher.Dispatch(modelID)
	if err != nil {
		// The queue rejected the job; close the ledger row as failed so
		// it does not linger as pending.
		_ = h.Calls.Complete(ctx, callID, time.Now().UTC(), false)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dispatch failed"})
	}
	if err := h.Calls.SetTaskID(ctx, callID, taskID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger write failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"task_id": taskID})
}

// TaskStatus is a non-blocking poll of a dispatched task. The response
// mirrors the dispatcher state: pending carries nothing extra, success
// carries the result, failure carries the error string.
func (h *InferenceHandler) TaskStatus(c echo.Context) error {
	taskID := c.Param("task_id")
	st, ok := h.Dispatcher.Status(taskID)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}
	switch st.State {
	case task.StateSuccess:
		return c.JSON(http.StatusOK, echo.Map{"state": st.State, "result": st.Result})
	case task.StateFailure:
		return c.JSON(http.StatusOK, echo.Map{"state": st.State, "error": st.Err})
	default:
		return c.JSON(http.StatusOK, echo.Map{"state": st.State})
	}
}

// PairUserModel creates the (user, model, policy) binding that entitles
// a user to call a governed model. Admin-only.
func (h *InferenceHandler) PairUserModel(c echo.Context) error {
	var req pairUserModelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Referential checks up front so the client gets a 404 naming the
	// missing piece instead of a bare foreign key error.
	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		return mapLookupErr(c, err, "user not found")
	}
	if _, err := h.Models.GetByID(ctx, req.ModelID); err != nil {
		return mapLookupErr(c, err, "model not found")
	}
	if _, err := h.Policies.GetByID(ctx, req.AccessPolicyID); err != nil {
		return mapLookupErr(c, err, "access policy not found")
	}

	ua, err := h.Access.Pair(ctx, req.UserID, req.ModelID, req.AccessPolicyID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateBinding) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "binding already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create binding failed"})
	}
	return c.JSON(http.StatusCreated, userAccessResp{
		UserID:         ua.UserID,
		ModelID:        ua.ModelID,
		AccessPolicyID: ua.AccessPolicyID,
		DailyCalls:     ua.DailyCalls,
		MonthlyCalls:   ua.MonthlyCalls,
		AccessGranted:  ua.AccessGranted,
		LastAccessed:   ua.LastAccessed,
	})
}

// CreatePolicy registers a new quota template. Admin-only.
func (h *InferenceHandler) CreatePolicy(c echo.Context) error {
	var req createPolicyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Policies.Create(ctx, req.Name, req.DailyAPICalls, req.MonthlyAPICalls)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create policy failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":                id,
		"name":              req.Name,
		"daily_api_calls":   req.DailyAPICalls,
		"monthly_api_calls": req.MonthlyAPICalls,
	})
}

// ListModels returns all registered inference models with a flag for
// whether each is currently dispatchable.
func (h *InferenceHandler) ListModels(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	models, err := h.Models.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	type modelResp struct {
		ID               uint64 `json:"id"`
		Name             string `json:"name"`
		Problem          string `json:"problem"`
		Category         string `json:"category,omitempty"`
		Version          string `json:"version,omitempty"`
		DeploymentStatus string `json:"deployment_status"`
		InProduction     bool   `json:"in_production"`
		AccessPolicyID   uint64 `json:"access_policy_id"`
		Dispatchable     bool   `json:"dispatchable"`
	}
	out := make([]modelResp, 0, len(models))
	for _, m := range models {
		out = append(out, modelResp{
			ID:               m.ID,
			Name:             m.Name,
			Problem:          m.Problem,
			Category:         m.Category,
			Version:          m.Version,
			DeploymentStatus: m.DeploymentStatus,
			InProduction:     m.InProduction,
			AccessPolicyID:   m.AccessPolicyID,
			Dispatchable:     h.Registry.Has(m.ID),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// ListMyCalls returns the authenticated user's ledger rows, newest
// first, so clients can audit their own usage.
func (h *InferenceHandler) ListMyCalls(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	calls, err := h.Calls.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	type callResp struct {
		ID          uint64     `json:"id"`
		ModelID     uint64     `json:"model_id"`
		RequestedAt time.Time  `json:"requested_at"`
		CompletedAt *time.Time `json:"completed_at,omitempty"`
		TaskID      *string    `json:"task_id,omitempty"`
		Success     bool       `json:"success"`
	}
	out := make([]callResp, 0, len(calls))
	for _, sc := range calls {
		out = append(out, callResp{
			ID:          sc.ID,
			ModelID:     sc.ModelID,
			RequestedAt: sc.RequestedAt,
			CompletedAt: sc.CompletedAt,
			TaskID:      sc.TaskID,
			Success:     sc.Success,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func mapLookupErr(c echo.Context, err error, notFoundMsg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFoundMsg})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
}
