package services

import "errors"

// ErrClaimInProgress is returned when a claim lease for the same
// (task, user) pair is already held. Safe to retry after the holder
// finishes or the lease expires.
var ErrClaimInProgress = errors.New("task is claiming")

// ValidationError rejects a request on business grounds: unknown or
// disabled task, condition outside the claimable allow-list, or a record
// that is not CLAIMABLE yet.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErr(reason string) error {
	return &ValidationError{Reason: reason}
}

// IsValidation reports whether err is a business validation rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
