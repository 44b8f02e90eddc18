package hemis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingCode        = errors.New("authorization code is required")
	ErrTokenRejected      = errors.New("token exchange failed on every candidate endpoint")
	ErrProfileUnavailable = errors.New("user profile unavailable")
	ErrIdentityUnresolved = errors.New("no usable identifier in user profile")
	ErrStateMismatch      = errors.New("login state mismatch")
)

// ExchangeError lists every attempt made before giving up.
type ExchangeError struct {
	Attempts []Attempt
}

func (e *ExchangeError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.String())
	}
	return fmt.Sprintf("%s (%s)", ErrTokenRejected.Error(), strings.Join(parts, "; "))
}

func (e *ExchangeError) Unwrap() error {
	return ErrTokenRejected
}
