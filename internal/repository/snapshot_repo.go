package repository

import (
	"context"
	"encoding/json"
	"errors"

	"buildpos/internal/model"
)

// ErrVersionConflict is returned by Replace when the caller's base version no
// longer matches the stored one — another writer got there first.
var ErrVersionConflict = errors.New("snapshot version conflict")

// ErrTableNotFound is returned for tables that were never initialized.
// Callers treat it as an empty collection at version 0.
var ErrTableNotFound = errors.New("table not found")

// Snapshot is one versioned whole-collection value.
type Snapshot struct {
	Table   model.Table
	Version int64
	Items   json.RawMessage
}

// SnapshotRepository is the persistence contract for versioned collections.
// Replace is a compare-and-swap: the write is accepted only when baseVersion
// equals the current stored version, and the new version is baseVersion+1.
// Handlers depend on this interface, not on the GORM implementation, so the
// concurrency scenarios can run against the in-memory variant.
type SnapshotRepository interface {
	Get(ctx context.Context, table model.Table) (*Snapshot, error)
	Replace(ctx context.Context, table model.Table, baseVersion int64, items json.RawMessage) (*Snapshot, error)
}

// SequenceRepository issues store-side atomic monotonic sequences, used for
// human-facing receipt numbers. Two concurrent callers always observe
// distinct values.
type SequenceRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}
