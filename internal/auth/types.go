package auth

import "errors"

// Role represents an authorisation tier for fleet API callers.
type Role string

const (
	// RoleViewer can read entities and their sync state.
	RoleViewer Role = "viewer"

	// RoleOperator can register, update, disable and delete entities.
	RoleOperator Role = "operator"

	// RoleAdmin can do everything an operator can and issue tokens for
	// other callers.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrForbidden    = errors.New("insufficient permissions")
)
