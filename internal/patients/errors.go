package patients

import "errors"

var (
	// ErrPatientNotFound is returned when no profile exists for the identity.
	ErrPatientNotFound = errors.New("patient not found")
)
