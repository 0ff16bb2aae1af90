package shadow

import "errors"

// Domain errors for the shadow package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, shadow.ErrConcurrencyConflict) {
//	    // re-read the record and retry
//	}
var (
	// ErrNotFound is returned when a record ID does not exist.
	ErrNotFound = errors.New("shadow: record not found")

	// ErrConcurrencyConflict is returned when the expected concurrency token
	// does not match the stored token.
	ErrConcurrencyConflict = errors.New("shadow: concurrency conflict")

	// ErrAlreadyExists is returned by Create when the record ID is taken.
	ErrAlreadyExists = errors.New("shadow: record already exists")

	// ErrInvalidPatch is returned when a patch cannot be applied.
	ErrInvalidPatch = errors.New("shadow: invalid patch")

	// ErrEncoding is returned when a property bag cannot be encoded or decoded.
	ErrEncoding = errors.New("shadow: property encoding failed")
)
