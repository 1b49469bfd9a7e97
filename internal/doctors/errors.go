package doctors

import "errors"

var (
	// ErrDoctorNotFound is returned when no profile exists for the identity
	// or the referenced doctor id.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrDuplicateEmail is returned when an upsert would reuse another
	// doctor's email address.
	ErrDuplicateEmail = errors.New("doctor email already in use")
)
