package provider

import (
	"errors"
	"fmt"
)

// TransportError wraps a network-level failure (timeout, DNS, TLS) talking
// to a provider. Potentially retryable by the caller. A timed-out call is
// always a TransportError, never a success.
type TransportError struct {
	Provider string
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BusinessError is an error reported by the provider itself (domain taken,
// insufficient balance, invalid TLD). Not retryable without changing input.
type BusinessError struct {
	Provider string
	Code     string
	Message  string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("%s: [%s] %s", e.Provider, e.Code, e.Message)
}

// IsRetryable reports whether err is a transport-level failure that the
// caller may retry without changing the request.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
