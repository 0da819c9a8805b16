package source

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies source failures; the retry wrapper and the pipeline decide
// policy off of it.
type Kind int

const (
	// KindUnavailable: network failure or upstream 5xx. Retryable.
	KindUnavailable Kind = iota
	// KindRateLimited: upstream 429, may carry retry-after guidance. Retryable.
	KindRateLimited
	// KindInvalidCredential: expired/rejected token. Terminal until an
	// operator supplies a new credential; never retried.
	KindInvalidCredential
	// KindFormat: the payload (or our request) was malformed. Not retryable.
	KindFormat
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindFormat:
		return "format"
	}
	return "unknown"
}

// Error is a classified failure talking to one external source.
type Error struct {
	Kind       Kind
	Source     string
	Status     int           // HTTP status, 0 on transport errors
	RetryAfter time.Duration // hint from a 429, 0 if absent
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Source, e.Kind)
	if e.Status != 0 {
		s += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether retrying could help.
func (e *Error) Transient() bool {
	return e.Kind == KindUnavailable || e.Kind == KindRateLimited
}

// IsKind reports whether err is a source error of the given kind.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}
