package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelara/inference-gateway/internal/config"
	"github.com/avelara/inference-gateway/internal/model"
	"github.com/avelara/inference-gateway/internal/repository"
)

// AdminHandler bundles dependencies for the user administration
// endpoints. All routes are mounted behind the admin role gate.
type AdminHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAdminHandler(cfg config.Config, u *repository.UserRepo) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: u}
}

type createAdminReq struct {
	Username    string `json:"username" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=4"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Country     string `json:"country"`
	Role        string `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive    *bool  `json:"is_active"`
	HasAccessV1 *bool  `json:"has_access_v1"`
	HasAccessV2 *bool  `json:"has_access_v2"`
}

type accessRightsReq struct {
	IsActive    *bool `json:"is_active" validate:"required"`
	HasAccessV1 *bool `json:"has_access_v1" validate:"required"`
	HasAccessV2 *bool `json:"has_access_v2" validate:"required"`
}

// ListUsers returns every user record.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, toUserPart(u))
	}
	return c.JSON(http.StatusOK, out)
}

// CreateUser creates an account with explicit role and entitlements.
// Unset flags default to the admin-create convention: active with both
// service versions granted. A malformed payload is a plain 400.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createAdminReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	role := req.Role
	if role == "" {
		role = model.RoleAdmin
	}
	boolOr := func(p *bool, def bool) bool {
		if p == nil {
			return def
		}
		return *p
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUserParams{
		Username:    req.Username,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Country:     req.Country,
		Role:        role,
		IsActive:    boolOr(req.IsActive, true),
		HasAccessV1: boolOr(req.HasAccessV1, true),
		HasAccessV2: boolOr(req.HasAccessV2, true),
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": uid})
}

// UpdateAccessRights changes a user's active flag and entitlements.
// Tokens the user already holds keep the old flags until they expire.
func (h *AdminHandler) UpdateAccessRights(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	var req accessRightsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateAccessRights(ctx, id, *req.IsActive, *req.HasAccessV1, *req.HasAccessV2); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteUser removes an account.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
