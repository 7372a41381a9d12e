package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avelara/inference-gateway/internal/model"
)

// ServiceCallRepo provides data access to the service_calls ledger. Each
// row records one inference request; the creator writes it once and the
// completion path updates it once, at disjoint times.
type ServiceCallRepo struct{ DB *sql.DB }

func NewServiceCallRepo(db *sql.DB) *ServiceCallRepo { return &ServiceCallRepo{DB: db} }

const callColumns = "id,model_id,user_id,requested_at,completed_at,task_id,success"

// Create appends a ledger row for a new request and returns its ID.
func (r *ServiceCallRepo) Create(ctx context.Context, modelID, userID uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO service_calls (model_id, user_id, requested_at) VALUES (?,?,?)",
		modelID, userID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// SetTaskID stores the correlation id on a freshly created row, before
// the response is returned to the client.
func (r *ServiceCallRepo) SetTaskID(ctx context.Context, id uint64, taskID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE service_calls SET task_id=? WHERE id=?", taskID, id)
	return err
}

// Complete stamps completion on a row by primary key. Used by the inline
// execution path where the request goroutine itself finishes the call.
func (r *ServiceCallRepo) Complete(ctx context.Context, id uint64, completedAt time.Time, success bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE service_calls SET completed_at=?, success=? WHERE id=?",
		completedAt.UTC(), success, id)
	return err
}

// CompleteByTaskID stamps completion on the row holding the given
// correlation id and reports how many rows matched. Zero means the
// dispatch path never persisted the id; the caller logs that as an
// inconsistency rather than failing.
func (r *ServiceCallRepo) CompleteByTaskID(ctx context.Context, taskID string, completedAt time.Time, success bool) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE service_calls SET completed_at=?, success=? WHERE task_id=?",
		completedAt.UTC(), success, taskID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanCall(row *sql.Row) (model.ServiceCall, error) {
	var sc model.ServiceCall
	err := row.Scan(&sc.ID, &sc.ModelID, &sc.UserID, &sc.RequestedAt,
		&sc.CompletedAt, &sc.TaskID, &sc.Success)
	if errors.Is(err, sql.ErrNoRows) {
		return sc, ErrNotFound
	}
	return sc, err
}

// GetByID fetches a ledger row by primary key.
func (r *ServiceCallRepo) GetByID(ctx context.Context, id uint64) (model.ServiceCall, error) {
	return scanCall(r.DB.QueryRowContext(ctx,
		"SELECT "+callColumns+" FROM service_calls WHERE id=? LIMIT 1", id))
}

// GetByTaskID fetches a ledger row by correlation id.
func (r *ServiceCallRepo) GetByTaskID(ctx context.Context, taskID string) (model.ServiceCall, error) {
	return scanCall(r.DB.QueryRowContext(ctx,
		"SELECT "+callColumns+" FROM service_calls WHERE task_id=? LIMIT 1", taskID))
}

// ListByUser returns a user's ledger rows, newest first.
func (r *ServiceCallRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ServiceCall, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+callColumns+" FROM service_calls WHERE user_id=? ORDER BY id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []model.ServiceCall
	for rows.Next() {
		var sc model.ServiceCall
		if err := rows.Scan(&sc.ID, &sc.ModelID, &sc.UserID, &sc.RequestedAt,
			&sc.CompletedAt, &sc.TaskID, &sc.Success); err != nil {
			return nil, err
		}
		calls = append(calls, sc)
	}
	return calls, rows.Err()
}
