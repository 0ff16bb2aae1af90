package entity

import (
	"errors"
	"fmt"
)

// Domain errors for the entity package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, entity.ErrInvalidRegistration) {
//	    // reject with 400
//	}
var (
	// ErrInvalidRegistration is returned when a registration breaks a
	// domain rule.
	ErrInvalidRegistration = errors.New("entity: invalid registration")

	// ErrMissingIdentityField is returned when an identity key cannot be
	// computed because an identity-affecting field is unset.
	ErrMissingIdentityField = errors.New("entity: missing identity field")

	// ErrKindMismatch is returned when two registrations of different kinds
	// are combined.
	ErrKindMismatch = errors.New("entity: kind mismatch")

	// ErrUnknownKind is returned when a kind name is not recognised.
	ErrUnknownKind = errors.New("entity: unknown kind")

	// ErrUnsupportedModel is returned by FromServiceModel for values that are
	// not service models.
	ErrUnsupportedModel = errors.New("entity: unsupported service model")
)

// MissingIdentityFieldError names the identity field that could not be
// resolved. It matches ErrMissingIdentityField with errors.Is.
type MissingIdentityFieldError struct {
	Kind  Kind
	Field string
}

func (e *MissingIdentityFieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrMissingIdentityField, e.Kind, e.Field)
}

// Is reports whether target is ErrMissingIdentityField.
func (e *MissingIdentityFieldError) Is(target error) bool {
	return target == ErrMissingIdentityField
}
