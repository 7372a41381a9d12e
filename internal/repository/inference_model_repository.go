package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avelara/inference-gateway/internal/model"
)

// InferenceModelRepo provides data access to the inference_models table.
type InferenceModelRepo struct{ DB *sql.DB }

func NewInferenceModelRepo(db *sql.DB) *InferenceModelRepo { return &InferenceModelRepo{DB: db} }

const modelColumns = "id,name,problem,category,version,deployment_status,in_production,first_deployed,last_updated,source_url,access_policy_id"

// Create registers a model and returns its ID.
func (r *InferenceModelRepo) Create(ctx context.Context, m model.InferenceModel) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO inference_models
		 (name, problem, category, version, deployment_status, in_production, first_deployed, last_updated, source_url, access_policy_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.Name, m.Problem, m.Category, m.Version, m.DeploymentStatus, m.InProduction,
		m.FirstDeployed, m.LastUpdated, m.SourceURL, m.AccessPolicyID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func scanModel(row *sql.Row) (model.InferenceModel, error) {
	var m model.InferenceModel
	err := row.Scan(&m.ID, &m.Name, &m.Problem, &m.Category, &m.Version,
		&m.DeploymentStatus, &m.InProduction, &m.FirstDeployed, &m.LastUpdated,
		&m.SourceURL, &m.AccessPolicyID)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

// GetByID fetches a model by id.
func (r *InferenceModelRepo) GetByID(ctx context.Context, id uint64) (model.InferenceModel, error) {
	return scanModel(r.DB.QueryRowContext(ctx,
		"SELECT "+modelColumns+" FROM inference_models WHERE id=? LIMIT 1", id))
}

// GetByName fetches a model by its unique name.
func (r *InferenceModelRepo) GetByName(ctx context.Context, name string) (model.InferenceModel, error) {
	return scanModel(r.DB.QueryRowContext(ctx,
		"SELECT "+modelColumns+" FROM inference_models WHERE name=? LIMIT 1", name))
}

// List returns all registered models ordered by id.
func (r *InferenceModelRepo) List(ctx context.Context) ([]model.InferenceModel, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+modelColumns+" FROM inference_models ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []model.InferenceModel
	for rows.Next() {
		var m model.InferenceModel
		if err := rows.Scan(&m.ID, &m.Name, &m.Problem, &m.Category, &m.Version,
			&m.DeploymentStatus, &m.InProduction, &m.FirstDeployed, &m.LastUpdated,
			&m.SourceURL, &m.AccessPolicyID); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}
