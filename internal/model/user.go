package model

import "time"

// User represents an application user record as stored in the `users`
// table. The json tags are omitted because these structs are used by the
// repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique username (an email address).
//  PasswordHash – bcrypt hashed password.
//  FirstName    – given name.
//  LastName     – family name.
//  Country      – optional country, empty when unset.
//  Role         – "user" or "admin".
//  IsActive     – whether the account is active.
//  HasAccessV1  – entitlement flag for the v1 prediction service.
//  HasAccessV2  – entitlement flag for the v2 prediction service.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Country      string    // users.country
	Role         string    // users.role
	IsActive     bool      // users.is_active
	HasAccessV1  bool      // users.has_access_v1
	HasAccessV2  bool      // users.has_access_v2
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Roles stored in users.role. The admin surface and the
// pair_user_model endpoint require RoleAdmin.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
