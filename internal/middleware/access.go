package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireAccessFlag gates a versioned prediction service on the
// per-user entitlement flag baked into the token. flagKey is one of
// CtxHasAccessV1 / CtxHasAccessV2. A false or missing flag yields 401:
// entitlement failure is treated like a missing identity, not a quota
// denial. Because the flag comes from the token, revoking access takes
// effect only once the old token expires.
func RequireAccessFlag(flagKey string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            has, ok := c.Get(flagKey).(bool)
            if !ok || !has {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            return next(c)
        }
    }
}
