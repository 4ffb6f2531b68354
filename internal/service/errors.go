package service

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is returned before any network call when the acting
// user lacks the permission a mutation requires.
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError reports a domain-rule violation (negative price, payment
// exceeding remaining debt, …). It is raised locally, before any round-trip.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
