package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/avelara/inference-gateway/internal/model"
)

// AccessPolicyRepo provides data access to the access_policies table.
// Policies are quota templates shared by reference from inference models
// and user access bindings; they are created rarely and read often.
type AccessPolicyRepo struct{ DB *sql.DB }

func NewAccessPolicyRepo(db *sql.DB) *AccessPolicyRepo { return &AccessPolicyRepo{DB: db} }

// Create inserts a policy and returns its ID.
func (r *AccessPolicyRepo) Create(ctx context.Context, name string, dailyCalls, monthlyCalls int) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO access_policies (name, daily_api_calls, monthly_api_calls) VALUES (?,?,?)",
		name, dailyCalls, monthlyCalls)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a policy by id.
func (r *AccessPolicyRepo) GetByID(ctx context.Context, id uint64) (model.AccessPolicy, error) {
	var p model.AccessPolicy
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,daily_api_calls,monthly_api_calls FROM access_policies WHERE id=? LIMIT 1",
		id).Scan(&p.ID, &p.Name, &p.DailyAPICalls, &p.MonthlyAPICalls)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

// GetByName fetches a policy by its unique name. Used by the seeder to
// keep startup idempotent.
func (r *AccessPolicyRepo) GetByName(ctx context.Context, name string) (model.AccessPolicy, error) {
	var p model.AccessPolicy
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,daily_api_calls,monthly_api_calls FROM access_policies WHERE name=? LIMIT 1",
		name).Scan(&p.ID, &p.Name, &p.DailyAPICalls, &p.MonthlyAPICalls)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

// Delete removes a policy. Deleting a policy that models or bindings
// still reference is refused; the foreign keys are declared RESTRICT so
// the database enforces the same rule.
func (r *AccessPolicyRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM access_policies WHERE id=?", id)
	if err != nil {
		// 1451 = ER_ROW_IS_REFERENCED_2
		if strings.Contains(err.Error(), "1451") {
			return ErrPolicyReferenced
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
