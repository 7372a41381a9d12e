package database

import (
	"context"
	"database/sql"
)

// migrations holds the schema in dependency order. Statements are
// idempotent so Migrate can run on every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		username VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		country VARCHAR(100) NOT NULL DEFAULT '',
		role VARCHAR(16) NOT NULL DEFAULT 'user',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		has_access_v1 TINYINT(1) NOT NULL DEFAULT 0,
		has_access_v2 TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS access_policies (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name VARCHAR(100) NOT NULL,
		daily_api_calls INT NOT NULL,
		monthly_api_calls INT NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_access_policies_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS inference_models (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name VARCHAR(255) NOT NULL,
		problem VARCHAR(100) NOT NULL,
		category VARCHAR(100) NOT NULL DEFAULT '',
		version VARCHAR(50) NOT NULL DEFAULT '',
		deployment_status VARCHAR(50) NOT NULL DEFAULT 'Pending',
		in_production TINYINT(1) NOT NULL DEFAULT 0,
		first_deployed DATETIME NULL,
		last_updated DATETIME NULL,
		source_url VARCHAR(512) NOT NULL DEFAULT '',
		access_policy_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_inference_models_name (name),
		CONSTRAINT fk_models_policy FOREIGN KEY (access_policy_id)
			REFERENCES access_policies (id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_access (
		user_id BIGINT UNSIGNED NOT NULL,
		model_id BIGINT UNSIGNED NOT NULL,
		access_policy_id BIGINT UNSIGNED NOT NULL,
		daily_calls INT NOT NULL DEFAULT 0,
		monthly_calls INT NOT NULL DEFAULT 0,
		access_granted TINYINT(1) NOT NULL DEFAULT 1,
		last_accessed DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, model_id),
		CONSTRAINT fk_access_user FOREIGN KEY (user_id)
			REFERENCES users (id) ON DELETE CASCADE,
		CONSTRAINT fk_access_model FOREIGN KEY (model_id)
			REFERENCES inference_models (id) ON DELETE CASCADE,
		CONSTRAINT fk_access_policy FOREIGN KEY (access_policy_id)
			REFERENCES access_policies (id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS service_calls (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		model_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		requested_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME NULL,
		task_id VARCHAR(64) NULL,
		success TINYINT(1) NOT NULL DEFAULT 0,
		PRIMARY KEY (id),
		KEY ix_service_calls_task_id (task_id),
		KEY ix_service_calls_user_id (user_id),
		CONSTRAINT fk_calls_model FOREIGN KEY (model_id)
			REFERENCES inference_models (id) ON DELETE RESTRICT,
		CONSTRAINT fk_calls_user FOREIGN KEY (user_id)
			REFERENCES users (id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema. Safe to call on every startup; all
// statements are IF NOT EXISTS.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
