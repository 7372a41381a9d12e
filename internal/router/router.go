// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/avelara/inference-gateway/internal/handler"
	"github.com/avelara/inference-gateway/internal/middleware"
	"github.com/avelara/inference-gateway/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the authentication surface. Registration and login
// are open (behind the rate limiter); profile and password change
// require a valid token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/auth", rateLimit)
	g.POST("/create", a.Register)
	g.POST("/token", a.Token)

	me := e.Group("/users", middleware.JWTAuth(jwtSecret))
	me.GET("/me", a.Me)
	me.PUT("/password", a.ChangePassword)
}

// RegisterAdmin wires the user administration surface. Every route sits
// behind the admin role gate; a non-admin identity gets 401.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	g.GET("/users", a.ListUsers)
	g.POST("/create", a.CreateUser)
	g.PUT("/users/:id", a.UpdateAccessRights)
	g.DELETE("/users/:id", a.DeleteUser)
}

// RegisterMLService wires one versioned prediction surface behind its
// entitlement flag. flagKey is the context key the JWT middleware
// stores the per-version access flag under.
func RegisterMLService(e *echo.Echo, prefix string, h *handler.MLServiceHandler, jwtSecret, flagKey string) {
	g := e.Group(prefix, middleware.JWTAuth(jwtSecret), middleware.RequireAccessFlag(flagKey))
	g.GET("/healthcheck", h.Healthcheck)
	g.POST("/predict", h.Predict)
}

// RegisterInference wires the policy-gated dispatch surface. Predict and
// the read endpoints need any authenticated user; pairing and policy
// creation are admin-only.
func RegisterInference(e *echo.Echo, h *handler.InferenceHandler, jwtSecret string) {
	g := e.Group("/inference", middleware.JWTAuth(jwtSecret))
	g.GET("/models", h.ListModels)
	g.GET("/calls", h.ListMyCalls)
	g.GET("/predict/:model_id", h.Predict)
	g.GET("/task_status/:task_id", h.TaskStatus)

	adm := g.Group("", middleware.RequireRole(model.RoleAdmin))
	adm.POST("/pair_user_model", h.PairUserModel)
	adm.POST("/policies", h.CreatePolicy)
}
