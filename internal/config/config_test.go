package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsDBPoolSettings(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV":              "test",
		"APP_PORT":             "8080",
		"DB_USER":              "gateway",
		"DB_HOST":              "localhost",
		"DB_PORT":              "3306",
		"DB_NAME":              "gateway",
		"JWT_SECRET":           "secret",
		"ACCESS_TOKEN_TTL_MIN": "30",
		"BCRYPT_COST":          "10",
		"CREATE_SUPERUSER":     "",
		"DB_MAX_OPEN_CONNS":    "40",
		"DB_MAX_IDLE_CONNS":    "20",
		"DB_CONN_MAX_LIFE_MIN": "15",
	} {
		t.Setenv(k, v)
	}

	cfg := Load()
	assert.Equal(t, 40, cfg.DBMaxOpenConns)
	assert.Equal(t, 20, cfg.DBMaxIdleConns)
	assert.Equal(t, 15, cfg.DBConnMaxLifeMin)
}

func TestLoadDBPoolDefaults(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV":              "test",
		"APP_PORT":             "8080",
		"DB_USER":              "gateway",
		"DB_HOST":              "localhost",
		"DB_PORT":              "3306",
		"DB_NAME":              "gateway",
		"JWT_SECRET":           "secret",
		"ACCESS_TOKEN_TTL_MIN": "30",
		"BCRYPT_COST":          "10",
		"CREATE_SUPERUSER":     "",
		"DB_MAX_OPEN_CONNS":    "",
		"DB_MAX_IDLE_CONNS":    "",
		"DB_CONN_MAX_LIFE_MIN": "",
	} {
		t.Setenv(k, v)
	}

	cfg := Load()
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, 25, cfg.DBMaxIdleConns)
	assert.Equal(t, 30, cfg.DBConnMaxLifeMin)
}
