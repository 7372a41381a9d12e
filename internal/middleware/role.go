package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that enforces that the authenticated
// user has one of the specified roles. The roles correspond to the
// values stored in the token's "role" claim. A missing or disallowed
// role is rejected with 401, matching the admin surface contract where
// a non-admin identity is treated as unauthenticated. It assumes
// JWTAuth ran earlier and stored the role in context.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get(CtxRole).(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            return next(c)
        }
    }
}
