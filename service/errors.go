package service

import (
	"errors"
	"fmt"
)

// AuthenticationError is returned when Darwin rejects the access token (HTTP 401).
type AuthenticationError struct {
	StatusCode int
}

func (e *AuthenticationError) Error() string {
	return "invalid API token - authentication failed"
}

// TransportError covers non-200 responses and network level failures. StatusCode is zero when
// no response was received.
type TransportError struct {
	StatusCode int
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("connection error: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// FaultError is a SOAP fault reported by the upstream service.
type FaultError struct {
	Message string
}

func (e *FaultError) Error() string {
	return e.Message
}

// ParseError is returned when the response document is not well formed XML.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse response: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// IsRetryable reports whether another attempt could succeed. Only transport failures qualify.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		return false
	}
	return transportErr.StatusCode == 0 || transportErr.StatusCode >= 500
}
