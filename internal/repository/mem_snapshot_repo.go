package repository

import (
	"context"
	"encoding/json"
	"sync"

	"buildpos/internal/model"
)

// MemSnapshotRepository is the in-memory SnapshotRepository used by tests and
// by `server --memory` for running without Postgres. Same CAS semantics as
// the GORM implementation.
type MemSnapshotRepository struct {
	mu        sync.Mutex
	snapshots map[model.Table]*Snapshot
}

func NewMemSnapshotRepository() *MemSnapshotRepository {
	return &MemSnapshotRepository{snapshots: make(map[model.Table]*Snapshot)}
}

func (r *MemSnapshotRepository) Get(_ context.Context, table model.Table) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snapshots[table]
	if !ok {
		return nil, ErrTableNotFound
	}
	cp := *snap
	return &cp, nil
}

func (r *MemSnapshotRepository) Replace(_ context.Context, table model.Table, baseVersion int64, items json.RawMessage) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := int64(0)
	if snap, ok := r.snapshots[table]; ok {
		current = snap.Version
	}
	if baseVersion != current {
		return nil, ErrVersionConflict
	}

	next := &Snapshot{Table: table, Version: baseVersion + 1, Items: append(json.RawMessage(nil), items...)}
	r.snapshots[table] = next
	cp := *next
	return &cp, nil
}

// MemSequenceRepository is the in-memory SequenceRepository counterpart.
type MemSequenceRepository struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemSequenceRepository() *MemSequenceRepository {
	return &MemSequenceRepository{counts: make(map[string]int64)}
}

func (r *MemSequenceRepository) Next(_ context.Context, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
	return r.counts[name], nil
}

// Seed sets the current value of a sequence, so tests can start receipt
// numbering above existing sales.
func (r *MemSequenceRepository) Seed(name string, value int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name] = value
}
