// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting error strings.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when a user create collides with an
// existing username. Handlers should translate this into an HTTP 409.
var ErrUsernameExists = errors.New("username already exists")

// ErrDuplicateBinding is returned when a (user, model) access binding
// already exists.
var ErrDuplicateBinding = errors.New("user access binding already exists")

// ErrPolicyReferenced is returned when an access policy cannot be
// deleted because models or bindings still reference it.
var ErrPolicyReferenced = errors.New("access policy still referenced")
