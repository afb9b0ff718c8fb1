package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// RequestError describes a classified HTTP failure. Kind is one of the request
// sentinels above, so errors.Is(err, ErrRateLimited) and friends work on it.
type RequestError struct {
	Kind       error
	URL        string
	StatusCode int
	// NetKind names the network failure class (dns, refused, reset, ...).
	NetKind    string
	retryAfter *time.Duration
	Err        error
}

// NewRequestError builds a RequestError. retryAfter may be nil.
func NewRequestError(kind error, url string, status int, retryAfter *time.Duration, cause error) *RequestError {
	return &RequestError{
		Kind:       kind,
		URL:        url,
		StatusCode: status,
		retryAfter: retryAfter,
		Err:        cause,
	}
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.NetKind != "" {
		fmt.Fprintf(&b, " (%s)", e.NetKind)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " for %s", e.URL)
	}
	if e.retryAfter != nil {
		fmt.Fprintf(&b, ", retry after %s", *e.retryAfter)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// RetryAfter returns the server supplied Retry-After hint, if any.
func (e *RequestError) RetryAfter() (time.Duration, bool) {
	if e.retryAfter == nil {
		return 0, false
	}
	return *e.retryAfter, true
}

// IsRetryable reports whether the failure is transient.
func (e *RequestError) IsRetryable() bool {
	switch e.Kind {
	case ErrRateLimited, ErrServerError, ErrNetworkFailure, ErrTimeout:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err, or any error it wraps, is a transient RequestError.
func IsRetryable(err error) bool {
	var reqErr *RequestError
	if stderrors.As(err, &reqErr) {
		return reqErr.IsRetryable()
	}
	return false
}

// RetryAfterHint extracts a Retry-After hint from err if it carries one.
func RetryAfterHint(err error) (time.Duration, bool) {
	var reqErr *RequestError
	if stderrors.As(err, &reqErr) {
		return reqErr.RetryAfter()
	}
	return 0, false
}
