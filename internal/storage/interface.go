// Package storage persists trading sessions and their operations.
package storage

import (
	"context"

	"github.com/rmarques/cryptobot/internal/core"
)

// Store defines the interface for session and operation persistence.
//
// Persistence is advisory for the live control flow: a failed write is
// logged by the caller and trading continues with an incomplete history.
type Store interface {
	// CreateSession persists a new ACTIVE session and returns its ID.
	// It fails with core.ErrSessionActive when the symbol already has an
	// active session; this is the single-active-session guard.
	CreateSession(ctx context.Context, symbol string, investedValue, investedQty float64) (string, error)

	// StopSession marks the session STOPPED and sets its end time.
	// Stopping an already stopped session fails with
	// core.ErrSessionNotActive.
	StopSession(ctx context.Context, id string) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, id string) (*core.Session, error)

	// ActiveSession returns the ACTIVE session for symbol, or
	// core.ErrSessionNotFound when there is none.
	ActiveSession(ctx context.Context, symbol string) (*core.Session, error)

	// RecordOperation appends an immutable operation to an existing
	// session's history.
	RecordOperation(ctx context.Context, op core.Operation) error

	// ListOperations returns all operations of a session in record order.
	ListOperations(ctx context.Context, sessionID string) ([]core.Operation, error)
}
