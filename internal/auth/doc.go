// Package auth provides authorisation for the Gray Logic Fleet API.
//
// Callers present HS256 JWT bearer tokens carrying a role claim. Roles map
// statically to permissions (compile-time, no database lookup):
//
//	viewer    fleet:read
//	operator  fleet:read, fleet:manage
//	admin     fleet:read, fleet:manage, token:issue
//
// The fleet stores no credentials. Tokens are minted by an admin through
// the API or by fleetd itself at bootstrap.
package auth
