package weather

import (
	"errors"
	"fmt"
)

// ErrFetchFailed is the single opaque error callers match on for any
// provider failure.
var ErrFetchFailed = errors.New("weather fetch failed")

// ErrUnsupported is returned by the Service when the configured provider
// lacks the requested capability.
var ErrUnsupported = errors.New("operation not supported by provider")

// FetchErrorKind classifies a provider failure for display purposes only.
type FetchErrorKind string

const (
	FetchNetwork     FetchErrorKind = "network"
	FetchStatus      FetchErrorKind = "status"
	FetchRateLimited FetchErrorKind = "rate-limited"
	FetchDecode      FetchErrorKind = "decode"
	FetchConfig      FetchErrorKind = "config"
	FetchCircuitOpen FetchErrorKind = "circuit-open"
)

// FetchError is the concrete error returned by providers.
type FetchError struct {
	Provider   string
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

// NewFetchError builds a FetchError. err may be nil.
func NewFetchError(provider string, kind FetchErrorKind, status int, err error) *FetchError {
	return &FetchError{Provider: provider, Kind: kind, StatusCode: status, Err: err}
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, ErrFetchFailed)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (%s %d)", msg, e.Kind, e.StatusCode)
	} else {
		msg = fmt.Sprintf("%s (%s)", msg, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetchFailed}
	}
	return []error{ErrFetchFailed, e.Err}
}

// Category is a short human-readable label for notifications.
func (e *FetchError) Category() string {
	switch e.Kind {
	case FetchNetwork:
		return "network unavailable"
	case FetchStatus:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	case FetchRateLimited:
		return "rate limited"
	case FetchDecode:
		return "malformed response"
	case FetchConfig:
		return "not configured"
	case FetchCircuitOpen:
		return "service temporarily unavailable"
	default:
		return "unknown error"
	}
}

// ErrorCategory returns the Category of the FetchError in err's chain, or a
// generic label when err is not a provider failure.
func ErrorCategory(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Category()
	}
	return "unknown error"
}
