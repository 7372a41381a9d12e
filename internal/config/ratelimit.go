package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig controls the fixed-window rate limiter applied to the
// authentication endpoints. When Enabled is false, or no Redis client is
// available at startup, the middleware becomes a pass-through.
type RateLimitConfig struct {
    Enabled bool          // master switch
    Limit   int           // requests allowed per window
    Window  time.Duration // window length
    Prefix  string        // redis key namespace
}

// LoadRateLimitConfig reads environment variables to build a
// RateLimitConfig. Defaults allow 30 requests per minute per client.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", true),
        Limit:   envInt("RATE_LIMIT_LIMIT", 30),
        Window:  envDur("RATE_LIMIT_WINDOW", time.Minute),
        Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
    }
    if cfg.Limit < 1 {
        cfg.Limit = 1
    }
    // The limiter buckets by whole seconds; anything shorter would make
    // the bucket divisor zero.
    if cfg.Window < time.Second {
        cfg.Window = time.Minute
    }
    return cfg
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch v {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
