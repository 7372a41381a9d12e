package middleware

import (
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/avelara/inference-gateway/internal/config"
)

// RateLimit returns a fixed-window limiter backed by Redis, keyed by
// client IP and route. It protects the authentication endpoints from
// brute force. When disabled, or when Redis is unavailable (nil client
// or runtime error), requests pass through; availability wins over
// strictness here.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    if cfg.Window < time.Second {
        // Sub-second windows would divide by zero below.
        cfg.Window = time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            window := time.Now().Unix() / int64(cfg.Window/time.Second)
            key := fmt.Sprintf("%s:%s:%s:%d", cfg.Prefix, c.RealIP(), c.Path(), window)

            ctx := c.Request().Context()
            n, err := rdb.Incr(ctx, key).Result()
            if err != nil {
                c.Logger().Warnf("ratelimit: redis error for key=%s: %v", key, err)
                return next(c)
            }
            if n == 1 {
                // First hit in this window owns the expiry.
                _ = rdb.Expire(ctx, key, cfg.Window).Err()
            }
            if n > int64(cfg.Limit) {
                retryAfter := cfg.Window - time.Duration(time.Now().Unix()%int64(cfg.Window/time.Second))*time.Second
                c.Response().Header().Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))
                return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
            }
            return next(c)
        }
    }
}
