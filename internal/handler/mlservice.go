package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelara/inference-gateway/internal/middleware"
	"github.com/avelara/inference-gateway/internal/predictor"
	"github.com/avelara/inference-gateway/internal/repository"
)

// MLServiceHandler serves one versioned prediction surface (v1 or v2).
// Prediction runs inline on the request goroutine: the ledger row is
// created and completed before the response leaves. ModelID is the
// database id of the seeded placeholder model backing this version, so
// inline calls and dispatched calls share one ledger.
type MLServiceHandler struct {
	Model   *predictor.Placeholder
	ModelID uint64
	Calls   *repository.ServiceCallRepo
}

func NewMLServiceHandler(m *predictor.Placeholder, modelID uint64, calls *repository.ServiceCallRepo) *MLServiceHandler {
	return &MLServiceHandler{Model: m, ModelID: modelID, Calls: calls}
}

type predictionReq struct {
	Text string `json:"text" validate:"required"`
}

type predictionResp struct {
	Category string `json:"category"`
}

// Healthcheck reports the service healthy. It sits behind the
// entitlement gate, so a 200 also confirms the caller's access flag.
func (h *MLServiceHandler) Healthcheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "healthy"})
}

// Predict classifies the input text and records the call in the ledger
// with its completion stamped synchronously.
func (h *MLServiceHandler) Predict(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req predictionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	callID, err := h.Calls.Create(ctx, h.ModelID, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger write failed"})
	}

	category := h.Model.Predict(req.Text)

	if err := h.Calls.Complete(ctx, callID, time.Now().UTC(), true); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger write failed"})
	}
	return c.JSON(http.StatusOK, predictionResp{Category: category})
}
