package database

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/avelara/inference-gateway/internal/config"
	"github.com/avelara/inference-gateway/internal/model"
	"github.com/avelara/inference-gateway/internal/repository"
)

// Seeded model names. The registry in cmd/server binds callables to the
// database ids these rows end up with, so seeded rows and the in-process
// registry always agree on what is dispatchable.
const (
	ModelNamePlaceholderV1 = "placeholder_v1"
	ModelNamePlaceholderV2 = "placeholder_v2"
	ModelNameLinreg        = "linreg_placeholder"
)

const basePolicyName = "base"

// Seed ensures the base access policy and the placeholder inference
// models exist, and optionally creates the superuser account. It is
// idempotent and runs on every startup.
func Seed(ctx context.Context, db *sql.DB, cfg config.Config) error {
	policies := repository.NewAccessPolicyRepo(db)
	models := repository.NewInferenceModelRepo(db)

	policy, err := policies.GetByName(ctx, basePolicyName)
	if errors.Is(err, repository.ErrNotFound) {
		id, createErr := policies.Create(ctx, basePolicyName, 1000, 30000)
		if createErr != nil {
			return createErr
		}
		policy = model.AccessPolicy{ID: id, Name: basePolicyName}
		log.Printf("seed: created access policy %q (id=%d)", basePolicyName, id)
	} else if err != nil {
		return err
	}

	seedModels := []model.InferenceModel{
		{
			Name:     ModelNamePlaceholderV1,
			Problem:  "classification",
			Category: "text",
			Version:  "1.0.0",
		},
		{
			Name:     ModelNamePlaceholderV2,
			Problem:  "classification",
			Category: "text",
			Version:  "2.0.0",
		},
		{
			Name:     ModelNameLinreg,
			Problem:  "regression",
			Category: "linear",
			Version:  "0.0.1",
		},
	}
	for _, m := range seedModels {
		if _, err := models.GetByName(ctx, m.Name); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		m.DeploymentStatus = "Pending"
		m.AccessPolicyID = policy.ID
		if _, err := models.Create(ctx, m); err != nil {
			return err
		}
		log.Printf("seed: registered inference model %q", m.Name)
	}

	if cfg.CreateSuperuser {
		if err := seedSuperuser(ctx, db, cfg); err != nil {
			return err
		}
	}
	return nil
}

// seedSuperuser creates the admin account named in the environment with
// full entitlements. An existing user with that name is left untouched.
func seedSuperuser(ctx context.Context, db *sql.DB, cfg config.Config) error {
	users := repository.NewUserRepo(db)
	if _, err := users.GetByUsername(ctx, cfg.SuperuserName); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	_, err := users.Create(ctx, repository.NewUserParams{
		Username:    cfg.SuperuserName,
		Password:    cfg.SuperuserPassword,
		FirstName:   "Super",
		LastName:    "User",
		Role:        model.RoleAdmin,
		IsActive:    true,
		HasAccessV1: true,
		HasAccessV2: true,
	}, cfg.BcryptCost)
	if err != nil {
		return err
	}
	log.Printf("seed: created superuser %q", cfg.SuperuserName)
	return nil
}
