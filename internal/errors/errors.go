// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrCircuitOpen        = errors.New("circuit open: trading paused")
	ErrAuthExchangeFailed = errors.New("auth code exchange failed")
	ErrRefreshUnavailable = errors.New("no refresh token available")
	ErrRefreshFailed      = errors.New("token refresh failed")
	ErrNoContract         = errors.New("no matching option contract")
	ErrMalformedResponse  = errors.New("malformed broker response")
)

// APIError represents a terminal error from the FYERS API after the
// gateway has exhausted its local recovery (retries, token refresh).
type APIError struct {
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fyers error [status=%d code=%d]: %s: %v", e.Status, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("fyers error [status=%d code=%d]: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError.
func NewAPIError(status, code int, message string, err error) *APIError {
	return &APIError{Status: status, Code: code, Message: message, Err: err}
}

// Retryable reports whether the status belongs to the retryable set.
func (e *APIError) Retryable() bool {
	switch e.Status {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// TransportError represents a network-level failure before any HTTP
// status was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CircuitOpenError carries the remaining pause so callers can report
// when trading resumes.
type CircuitOpenError struct {
	RemainingSeconds int
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open; retry in %ds", e.RemainingSeconds)
}

func (e *CircuitOpenError) Unwrap() error {
	return ErrCircuitOpen
}

// OrderError represents an error related to order operations.
type OrderError struct {
	OrderID string
	Symbol  string
	Action  string
	Reason  string
	Err     error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order error [%s] %s %s: %s: %v", e.OrderID, e.Action, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error [%s] %s %s: %s", e.OrderID, e.Action, e.Symbol, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(orderID, symbol, action, reason string, err error) *OrderError {
	return &OrderError{OrderID: orderID, Symbol: symbol, Action: action, Reason: reason, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
