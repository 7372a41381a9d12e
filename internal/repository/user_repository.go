package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/avelara/inference-gateway/internal/model"
	"github.com/avelara/inference-gateway/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,password_hash,first_name,last_name,country,role,is_active,has_access_v1,has_access_v2,created_at,updated_at"

// NewUserParams carries everything needed to insert a user row. The
// plain password is hashed inside Create so callers never handle digests.
type NewUserParams struct {
	Username    string
	Password    string
	FirstName   string
	LastName    string
	Country     string
	Role        string
	IsActive    bool
	HasAccessV1 bool
	HasAccessV2 bool
}

// Create inserts a user and returns its ID. Usernames are normalized to
// lower case before insert; a duplicate maps to ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, p NewUserParams, bcryptCost int) (uint64, error) {
	username := strings.ToLower(strings.TrimSpace(p.Username))
	hash, err := utils.HashPassword(p.Password, bcryptCost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, first_name, last_name, country, role, is_active, has_access_v1, has_access_v2)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		username, hash, p.FirstName, p.LastName, p.Country, p.Role, p.IsActive, p.HasAccessV1, p.HasAccessV2)
	if err != nil {
		// 1062 = ER_DUP_ENTRY
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Country, &u.Role, &u.IsActive, &u.HasAccessV1, &u.HasAccessV2, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns all users ordered by id. Used by the admin surface only.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName,
			&u.Country, &u.Role, &u.IsActive, &u.HasAccessV1, &u.HasAccessV2, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateAccessRights sets the active flag and both entitlement flags for
// one user. Tokens issued before the update keep their old flags until
// the user authenticates again.
func (r *UserRepo) UpdateAccessRights(ctx context.Context, id uint64, isActive, hasV1, hasV2 bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=?, has_access_v1=?, has_access_v2=? WHERE id=?",
		isActive, hasV1, hasV2, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "row unchanged" from "row missing".
		var exists int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// UpdatePassword replaces the stored hash for a user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, newPassword string, bcryptCost int) error {
	hash, err := utils.HashPassword(newPassword, bcryptCost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
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
