package resilience

import (
	"errors"
	"net/http"
)

// StatusError tags an error with an HTTP-like status so callers can branch on
// its class without matching strings.
type StatusError struct {
	Status  int
	Err     error
	timeout bool
}

func (e *StatusError) Error() string   { return e.Err.Error() }
func (e *StatusError) Unwrap() error   { return e.Err }
func (e *StatusError) StatusCode() int { return e.Status }

// NewError returns a StatusError carrying msg. Package-level sentinels are
// built with it so errors.Is keeps working through %w wrapping.
func NewError(status int, msg string) error {
	return &StatusError{Status: status, Err: errors.New(msg)}
}

// NewTimeout returns a gateway-timeout StatusError in its own class: the
// outcome is unknown, so it is neither retried nor reported as unavailable.
func NewTimeout(msg string) error {
	return &StatusError{Status: http.StatusGatewayTimeout, Err: errors.New(msg), timeout: true}
}

// WithStatus tags err with status. A nil err stays nil.
func WithStatus(status int, err error) error {
	if err == nil {
		return nil
	}
	return &StatusError{Status: status, Err: err}
}

// StatusOf returns the status carried by err, or 0 when it has none.
func StatusOf(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// IsClientError reports a 4xx-class failure (validation, not found,
// permission, conflict). These are never retried.
func IsClientError(err error) bool {
	status := StatusOf(err)
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}

// IsTimeout reports an error built with NewTimeout.
func IsTimeout(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.timeout
}

// IsRetryable reports whether a failed attempt may be tried again.
func IsRetryable(err error) bool {
	return err != nil && !IsClientError(err) && !IsTimeout(err)
}

// IsUnavailable reports the transient class: network failures and 5xx.
func IsUnavailable(err error) bool {
	return IsRetryable(err)
}
