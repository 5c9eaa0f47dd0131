// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// ErrorCode extracts the structured code from err, or "UNKNOWN" when err
// carries none.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN"
}

// Predefined errors
var (
	// Market data errors (retryable inside the trading loop)
	ErrDataUnavailable = &Error{Code: "DATA_UNAVAILABLE", Message: "market data unavailable"}

	// Symbol errors (fatal for sizing until corrected)
	ErrSymbolNotFound = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol has no trading rules"}

	// Order errors
	ErrOrderRejected      = &Error{Code: "ORDER_REJECTED", Message: "exchange rejected order"}
	ErrQuantityOutOfRange = &Error{Code: "QUANTITY_OUT_OF_RANGE", Message: "adjusted quantity outside lot bounds"}

	// Position state errors
	ErrPositionOpen = &Error{Code: "POSITION_OPEN", Message: "position already open"}
	ErrNoPosition   = &Error{Code: "NO_POSITION", Message: "no open position"}

	// Session errors
	ErrSessionActive    = &Error{Code: "SESSION_ACTIVE", Message: "session already active for symbol"}
	ErrSessionNotActive = &Error{Code: "SESSION_NOT_ACTIVE", Message: "session is not active"}
	ErrSessionNotFound  = &Error{Code: "SESSION_NOT_FOUND", Message: "session not found"}

	// Persistence errors (advisory for the live control flow)
	ErrPersistence = &Error{Code: "PERSISTENCE_FAILED", Message: "could not persist record"}

	// Backtest errors
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for analysis"}

	// Configuration errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "invalid configuration"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "missing required configuration"}
)
