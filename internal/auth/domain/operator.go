// Package domain defines operators, their permissions and the actions they may
// be authorized for.
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Permission is a capability granted to an operator.
type Permission string

// Known permissions. PermissionAdmin implies every other one.
const (
	PermissionRead       Permission = "read"
	PermissionEdit       Permission = "edit"
	PermissionApply      Permission = "apply"
	PermissionRotateCert Permission = "rotate-cert"
	PermissionRestore    Permission = "restore"
	PermissionAdmin      Permission = "admin"
)

// AllPermissions lists every known permission.
var AllPermissions = []Permission{
	PermissionRead,
	PermissionEdit,
	PermissionApply,
	PermissionRotateCert,
	PermissionRestore,
	PermissionAdmin,
}

// ParsePermissions parses a comma separated permission list.
func ParsePermissions(list string) ([]Permission, error) {
	var permissions []Permission
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		permission := Permission(part)
		if !slices.Contains(AllPermissions, permission) {
			return nil, &InvalidPermissionError{Permission: part}
		}
		if !slices.Contains(permissions, permission) {
			permissions = append(permissions, permission)
		}
	}
	if len(permissions) == 0 {
		return nil, ErrNoPermissions
	}
	return permissions, nil
}

// Operator is a stored operator account.
type Operator struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	PasswordHash string       `json:"password_hash"` //nolint:gosec // argon2id hash, not plaintext
	TOTPSecret   string       `json:"totp_secret,omitempty"`
	Permissions  []Permission `json:"permissions"`
	CreatedAt    time.Time    `json:"created_at"`
}

// TOTPEnabled reports whether the operator must present a one-time code.
func (o *Operator) TOTPEnabled() bool {
	return o.TOTPSecret != ""
}

// Actor returns the authenticated identity of the operator.
func (o *Operator) Actor() *Actor {
	return &Actor{
		ID:          o.ID.String(),
		Name:        o.Name,
		Permissions: slices.Clone(o.Permissions),
	}
}

// Actor is an authenticated operator identity.
type Actor struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// Has reports whether the actor holds the permission, directly or through admin.
func (a *Actor) Has(permission Permission) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.Permissions, PermissionAdmin) || slices.Contains(a.Permissions, permission)
}

// Credentials are presented to Authenticate.
type Credentials struct {
	Operator string
	Password string //nolint:gosec // plaintext only in memory during authentication
	TOTPCode string
}

// CreateOperatorInput holds the data for a new operator.
type CreateOperatorInput struct {
	Name        string
	Password    string //nolint:gosec // hashed before storage
	Permissions []Permission
}

// TOTPEnrollment is returned once when a second factor is enrolled.
type TOTPEnrollment struct {
	Operator string `json:"operator"`
	Secret   string `json:"secret"`
	URL      string `json:"url"`
}
