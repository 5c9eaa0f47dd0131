// Package archive writes stopped trading sessions and their operation
// history to a cold storage backend for later review.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rmarques/cryptobot/internal/core"
)

// Storage defines the interface for cold/archive storage backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// Record is the serialized form of an archived session.
type Record struct {
	Session    core.Session     `json:"session"`
	Operations []core.Operation `json:"operations"`
	ArchivedAt time.Time        `json:"archived_at"`
}

// Archiver serializes stopped sessions into a Storage backend.
type Archiver struct {
	storage Storage
	now     func() time.Time
}

// NewArchiver creates an Archiver over the given backend.
func NewArchiver(storage Storage) *Archiver {
	return &Archiver{storage: storage, now: time.Now}
}

// Archive writes the session and its operations as a JSON document and
// returns the storage path. Only stopped sessions are archived; an active
// session's history is still growing.
func (a *Archiver) Archive(ctx context.Context, session core.Session, ops []core.Operation) (string, error) {
	if session.IsActive() {
		return "", fmt.Errorf("archive: session %s is still active", session.ID)
	}

	record := Record{
		Session:    session,
		Operations: ops,
		ArchivedAt: a.now(),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("archive: marshaling session %s: %w", session.ID, err)
	}

	path := fmt.Sprintf("sessions/%s/%s.json", session.Symbol, session.ID)
	if err := a.storage.Write(ctx, path, data); err != nil {
		return "", fmt.Errorf("archive: writing %s: %w", path, err)
	}
	return path, nil
}

// Load reads back an archived session record.
func (a *Archiver) Load(ctx context.Context, path string) (*Record, error) {
	data, err := a.storage.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("archive: reading %s: %w", path, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("archive: decoding %s: %w", path, err)
	}
	return &record, nil
}

// ListSymbol returns the archive paths recorded for a symbol.
func (a *Archiver) ListSymbol(ctx context.Context, symbol string) ([]string, error) {
	return a.storage.List(ctx, "sessions/"+symbol)
}
