package lake

import (
	"context"
	"errors"
	"fmt"

	"github.com/barrage-archive/barrage/log"
	"github.com/barrage-archive/barrage/types"
)

// Merger persists rows into a partition via a read-existing/union/rewrite
// cycle. The object store has no row-append primitive, so every merge reads
// the partition's current object fully, unions the new rows after the
// existing ones, and overwrites the object.
//
// Not safe under concurrent writers to the same partition: two read-union-
// rewrite cycles can clobber each other's rows. Correctness rests on the
// invariant that exactly one room task owns a (room, day) partition.
type Merger struct {
	store  Store
	logger *log.Logger
}

// NewMerger creates a Merger over the given store.
func NewMerger(store Store, logger *log.Logger) *Merger {
	return &Merger{store: store, logger: logger}
}

// Ensure guarantees the partition's remote object exists, creating a
// schema-only placeholder if absent. Later merges then always have a
// well-defined base to read.
func (m *Merger) Ensure(ctx context.Context, p Partition) error {
	exists, err := m.store.Exists(ctx, p.Key())
	if err != nil {
		return fmt.Errorf("lake: check partition %s: %w", p, err)
	}
	if exists {
		return nil
	}

	placeholder, err := EncodeRows(nil)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, p.Key(), placeholder); err != nil {
		return fmt.Errorf("lake: create partition %s: %w", p, err)
	}

	m.logger.Info("created partition placeholder", map[string]any{
		"partition": p.Key(),
	})
	return nil
}

// Merge unions rows into the partition's remote object.
//
// An empty rows slice is a no-op when the object already exists (the remote
// bytes are left untouched); if the object is missing it is created as a
// placeholder. A missing object with pending rows is treated as an empty
// base rather than an error.
func (m *Merger) Merge(ctx context.Context, p Partition, rows []types.Row) error {
	if len(rows) == 0 {
		return m.Ensure(ctx, p)
	}

	var existing []types.Row
	data, err := m.store.Get(ctx, p.Key())
	switch {
	case errors.Is(err, ErrNotExist):
		// Placeholder creation raced or was skipped; merge onto empty.
	case err != nil:
		return fmt.Errorf("lake: read partition %s: %w", p, err)
	default:
		existing, err = DecodeRows(data)
		if err != nil {
			return fmt.Errorf("lake: partition %s: %w", p, err)
		}
	}

	merged := make([]types.Row, 0, len(existing)+len(rows))
	merged = append(merged, existing...)
	merged = append(merged, rows...)

	encoded, err := EncodeRows(merged)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, p.Key(), encoded); err != nil {
		return fmt.Errorf("lake: write partition %s: %w", p, err)
	}

	m.logger.Info("merged rows into partition", map[string]any{
		"partition": p.Key(),
		"new_rows":  len(rows),
		"total":     len(merged),
	})
	return nil
}
