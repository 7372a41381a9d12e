package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and sizes.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name

    DBMaxOpenConns   int // connection pool: max open connections
    DBMaxIdleConns   int // connection pool: max idle connections
    DBConnMaxLifeMin int // connection pool: max connection lifetime in minutes

    JWTSecret    string // secret used to sign JWTs
    AccessTTLMin int    // access token time‑to‑live in minutes
    BcryptCost   int    // bcrypt cost for password hashing
    TaskWorkers  int    // number of goroutines in the dispatch worker pool
    TaskRetries  int    // retry budget for transient job failures

    CreateSuperuser   bool   // seed an admin account at startup when true
    SuperuserName     string // username of the seeded admin (required when CreateSuperuser)
    SuperuserPassword string // password of the seeded admin (required when CreateSuperuser)
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:          must("APP_ENV"),                 // environment (dev/test/prod)
        Port:         must("APP_PORT"),                // port to bind the HTTP server
        DBUser:       must("DB_USER"),                 // database user
        DBPass:       os.Getenv("DB_PASS"),            // database password (empty allowed)
        DBHost:       must("DB_HOST"),                 // database host
        DBPort:       must("DB_PORT"),                 // database port
        DBName:       must("DB_NAME"),                 // database name
        JWTSecret:    must("JWT_SECRET"),              // secret used for signing JWTs
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"), // TTL for access tokens in minutes
        BcryptCost:   mustInt("BCRYPT_COST"),          // bcrypt cost factor
        TaskWorkers:  intOr("TASK_WORKERS", 4),        // dispatch worker pool size
        TaskRetries:  intOr("TASK_RETRIES", 3),        // transient failure retry budget

        DBMaxOpenConns:   intOr("DB_MAX_OPEN_CONNS", 25),
        DBMaxIdleConns:   intOr("DB_MAX_IDLE_CONNS", 25),
        DBConnMaxLifeMin: intOr("DB_CONN_MAX_LIFE_MIN", 30),
    }
    cfg.CreateSuperuser = boolEnv("CREATE_SUPERUSER")
    if cfg.CreateSuperuser {
        cfg.SuperuserName = must("SUPERUSER_NAME")
        cfg.SuperuserPassword = must("SUPERUSER_PASSWORD")
    }
    return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// intOr returns the integer value of an optional environment variable,
// falling back to def when unset or unparsable.
func intOr(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        return def
    }
    return n
}

// boolEnv interprets a handful of truthy spellings; anything else is false.
func boolEnv(key string) bool {
    switch os.Getenv(key) {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    }
    return false
}
