package middleware // middleware provides shared request processing for handlers

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/avelara/inference-gateway/internal/utils"
)

// Context keys under which JWTAuth stores the verified claims. Handlers
// and downstream middleware read these via c.Get().
const (
    CtxUserID      = "user_id"
    CtxUsername    = "username"
    CtxRole        = "role"
    CtxHasAccessV1 = "has_access_v1"
    CtxHasAccessV2 = "has_access_v2"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's claims into the request context. The provided
// secret must match the one used when issuing tokens. The claims are a
// point-in-time snapshot: entitlement changes after issuance are not
// visible here until the client re-authenticates.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.VerifyAccessToken(secret, raw)
            if err != nil {
                msg := "invalid token"
                switch err {
                case utils.ErrTokenExpired:
                    msg = "token expired"
                case utils.ErrMalformedClaims:
                    msg = "invalid claims"
                }
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
            }

            c.Set(CtxUserID, claims.UserID)
            c.Set(CtxUsername, claims.Username)
            c.Set(CtxRole, claims.Role)
            c.Set(CtxHasAccessV1, claims.HasAccessV1)
            c.Set(CtxHasAccessV2, claims.HasAccessV2)
            return next(c)
        }
    }
}

// UserID extracts the authenticated user's id from context. The second
// return is false when JWTAuth did not run on this route.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(CtxUserID).(uint64)
    return id, ok
}
