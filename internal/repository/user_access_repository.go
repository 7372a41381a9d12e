package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/avelara/inference-gateway/internal/model"
)

// Denial reasons surfaced by CheckAndRecord. They are returned to the
// client verbatim in the 403 body.
const (
	DenyNoGrant       = "no access grant"
	DenyAccessRevoked = "access revoked"
	DenyQuotaExceeded = "quota exceeded"
)

// Decision is the outcome of one access check. When Allowed is false,
// Reason holds one of the Deny* constants.
type Decision struct {
	Allowed bool
	Reason  string
}

// UserAccessRepo provides data access to the user_access table,
// including the quota check-and-increment operation that gates
// dispatched inference calls.
type UserAccessRepo struct{ DB *sql.DB }

func NewUserAccessRepo(db *sql.DB) *UserAccessRepo { return &UserAccessRepo{DB: db} }

// Pair creates the (user, model, policy) binding with zeroed counters.
func (r *UserAccessRepo) Pair(ctx context.Context, userID, modelID, policyID uint64) (model.UserAccess, error) {
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_access (user_id, model_id, access_policy_id, daily_calls, monthly_calls, access_granted, last_accessed)
		 VALUES (?,?,?,0,0,1,?)`,
		userID, modelID, policyID, now)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.UserAccess{}, ErrDuplicateBinding
		}
		return model.UserAccess{}, err
	}
	return model.UserAccess{
		UserID:         userID,
		ModelID:        modelID,
		AccessPolicyID: policyID,
		AccessGranted:  true,
		LastAccessed:   now,
	}, nil
}

// Get fetches one binding.
func (r *UserAccessRepo) Get(ctx context.Context, userID, modelID uint64) (model.UserAccess, error) {
	var ua model.UserAccess
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, model_id, access_policy_id, daily_calls, monthly_calls, access_granted, last_accessed
		 FROM user_access WHERE user_id=? AND model_id=? LIMIT 1`,
		userID, modelID).Scan(&ua.UserID, &ua.ModelID, &ua.AccessPolicyID,
		&ua.DailyCalls, &ua.MonthlyCalls, &ua.AccessGranted, &ua.LastAccessed)
	if errors.Is(err, sql.ErrNoRows) {
		return ua, ErrNotFound
	}
	return ua, err
}

// SetGranted flips the access_granted flag on a binding.
func (r *UserAccessRepo) SetGranted(ctx context.Context, userID, modelID uint64, granted bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_access SET access_granted=? WHERE user_id=? AND model_id=?",
		granted, userID, modelID)
	if err != nil {
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

// CheckAndRecord is the quota gate: it decides whether one more call is
// allowed for (user, model) and, if so, counts it. The whole
// read-roll-check-increment sequence runs inside a transaction with the
// binding row locked FOR UPDATE, so two concurrent requests against the
// same pair cannot both pass a last-slot boundary check.
func (r *UserAccessRepo) CheckAndRecord(ctx context.Context, userID, modelID uint64) (Decision, error) {
	now := time.Now().UTC()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Decision{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		daily, monthly       int
		dailyCap, monthlyCap int
		granted              bool
		lastAccessed         time.Time
	)
	err = tx.QueryRowContext(ctx,
		`SELECT ua.daily_calls, ua.monthly_calls, ua.access_granted, ua.last_accessed,
		        p.daily_api_calls, p.monthly_api_calls
		 FROM user_access ua
		 JOIN access_policies p ON p.id = ua.access_policy_id
		 WHERE ua.user_id=? AND ua.model_id=?
		 FOR UPDATE`,
		userID, modelID).Scan(&daily, &monthly, &granted, &lastAccessed, &dailyCap, &monthlyCap)
	if errors.Is(err, sql.ErrNoRows) {
		return Decision{Reason: DenyNoGrant}, nil
	}
	if err != nil {
		return Decision{}, err
	}
	daily, monthly = rollCounters(now, lastAccessed, daily, monthly)
	d := decideQuota(granted, daily, monthly, dailyCap, monthlyCap)
	if !d.Allowed {
		return d, nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE user_access SET daily_calls=?, monthly_calls=?, last_accessed=? WHERE user_id=? AND model_id=?",
		daily+1, monthly+1, now, userID, modelID)
	if err != nil {
		return Decision{}, err
	}
	if err := tx.Commit(); err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: true}, nil
}

// decideQuota is the verdict on one more call given rolled counters and
// the policy caps. A counter sitting at cap-1 still passes (and the call
// is then counted); at cap it is denied. Revocation wins over quota.
func decideQuota(granted bool, daily, monthly, dailyCap, monthlyCap int) Decision {
	if !granted {
		return Decision{Reason: DenyAccessRevoked}
	}
	if daily >= dailyCap || monthly >= monthlyCap {
		return Decision{Reason: DenyQuotaExceeded}
	}
	return Decision{Allowed: true}
}

// rollCounters applies period rollover to the usage counters. The daily
// counter resets when the UTC calendar day changed since last access and
// the monthly counter when the calendar month changed; each check is
// independent, and a new month always implies a new day.
func rollCounters(now, lastAccessed time.Time, daily, monthly int) (int, int) {
	now = now.UTC()
	lastAccessed = lastAccessed.UTC()

	ny, nm, nd := now.Date()
	ly, lm, ld := lastAccessed.Date()

	if ny != ly || nm != lm || nd != ld {
		daily = 0
	}
	if ny != ly || nm != lm {
		monthly = 0
	}
	return daily, monthly
}
