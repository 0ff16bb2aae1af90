package fleet

import "errors"

// Domain errors for the fleet package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, fleet.ErrEntityNotFound) {
//	    // respond 404
//	}
var (
	// ErrEntityNotFound is returned when no entity of the requested kind
	// exists under an ID.
	ErrEntityNotFound = errors.New("fleet: entity not found")

	// ErrEntityExists is returned when registering, or re-keying onto, an
	// identity that is already taken.
	ErrEntityExists = errors.New("fleet: entity already exists")

	// ErrConflict is returned when a caller's concurrency token is stale or
	// a write kept losing races after all retries.
	ErrConflict = errors.New("fleet: concurrent modification")

	// ErrInvalidReport is returned when an agent report cannot be parsed.
	ErrInvalidReport = errors.New("fleet: invalid report")
)
