package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rmarques/cryptobot/internal/core"
)

// MemoryStore is an in-memory Store. Safe for concurrent use; the
// single-active-session-per-symbol rule is enforced under the store lock, so
// two concurrent starts for the same symbol cannot both succeed.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*core.Session
	operations map[string][]core.Operation
	opCounter  int64
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*core.Session),
		operations: make(map[string][]core.Operation),
		now:        time.Now,
	}
}

// CreateSession persists a new ACTIVE session for symbol.
func (m *MemoryStore) CreateSession(ctx context.Context, symbol string, investedValue, investedQty float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.Symbol == symbol && s.Status == core.SessionActive {
			return "", core.ErrSessionActive
		}
	}

	id := uuid.NewString()
	m.sessions[id] = &core.Session{
		ID:            id,
		Symbol:        symbol,
		StartTime:     m.now(),
		Status:        core.SessionActive,
		InvestedValue: investedValue,
		InvestedQty:   investedQty,
	}
	return id, nil
}

// StopSession transitions a session to STOPPED exactly once.
func (m *MemoryStore) StopSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return core.ErrSessionNotFound
	}
	if s.Status != core.SessionActive {
		return core.ErrSessionNotActive
	}

	end := m.now()
	s.Status = core.SessionStopped
	s.EndTime = &end
	return nil
}

// GetSession returns a copy of the session with the given ID.
func (m *MemoryStore) GetSession(ctx context.Context, id string) (*core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

// ActiveSession returns the ACTIVE session for symbol.
func (m *MemoryStore) ActiveSession(ctx context.Context, symbol string) (*core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		if s.Symbol == symbol && s.Status == core.SessionActive {
			copied := *s
			return &copied, nil
		}
	}
	return nil, core.ErrSessionNotFound
}

// RecordOperation appends op to its session's history.
func (m *MemoryStore) RecordOperation(ctx context.Context, op core.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[op.SessionID]; !ok {
		return core.WrapError(core.ErrPersistence, fmt.Errorf("unknown session %s", op.SessionID))
	}

	m.opCounter++
	op.ID = fmt.Sprintf("op_%d", m.opCounter)
	m.operations[op.SessionID] = append(m.operations[op.SessionID], op)
	return nil
}

// ListOperations returns the recorded operations of a session in order.
func (m *MemoryStore) ListOperations(ctx context.Context, sessionID string) ([]core.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return nil, core.ErrSessionNotFound
	}

	ops := m.operations[sessionID]
	result := make([]core.Operation, len(ops))
	copy(result, ops)
	return result, nil
}
