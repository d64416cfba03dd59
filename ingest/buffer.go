// Package ingest accumulates decoded messages per room and flushes them
// into date partitions.
//
// A Buffer is confined to its room's task: the orchestration loop is the
// only writer, so pending state is plain fields with no synchronization.
package ingest

import (
	"context"
	"time"

	"github.com/barrage-archive/barrage/lake"
	"github.com/barrage-archive/barrage/log"
	"github.com/barrage-archive/barrage/metrics"
	"github.com/barrage-archive/barrage/types"
)

// Default flush policy values.
const (
	// DefaultFlushRows is the pending-row count above which a flush
	// triggers. Bounds worst-case buffered-row loss on crash.
	DefaultFlushRows = 100
	// DefaultFlushInterval is the maximum staleness between flushes.
	DefaultFlushInterval = 5 * time.Minute
)

// Sink persists buffered rows into a partition. Implementations must treat
// an empty row slice as a cheap no-op that still guarantees the partition
// object exists.
type Sink interface {
	// Merge durably writes rows into the partition.
	Merge(ctx context.Context, p lake.Partition, rows []types.Row) error

	// Ensure guarantees the partition's remote object exists.
	Ensure(ctx context.Context, p lake.Partition) error
}

// Config tunes the flush policy.
type Config struct {
	// FlushRows is the pending-count trigger; a flush fires when pending
	// exceeds it. Zero means DefaultFlushRows.
	FlushRows int
	// FlushInterval is the staleness trigger. Zero means
	// DefaultFlushInterval.
	FlushInterval time.Duration
	// Clock overrides time.Now for tests.
	Clock func() time.Time
	// Metrics receives flush counters. Nil disables collection.
	Metrics *metrics.Collector
}

// Buffer accumulates rows for one room, bound to exactly one partition at
// a time.
type Buffer struct {
	roomID    int64
	partition lake.Partition
	rows      []types.Row
	lastFlush time.Time

	config Config
	sink   Sink
	logger *log.Logger
	now    func() time.Time
}

// NewBuffer creates a buffer bound to the given partition.
func NewBuffer(roomID int64, partition lake.Partition, sink Sink, config Config, logger *log.Logger) *Buffer {
	if config.FlushRows <= 0 {
		config.FlushRows = DefaultFlushRows
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}

	return &Buffer{
		roomID:    roomID,
		partition: partition,
		config:    config,
		sink:      sink,
		logger:    logger,
		now:       now,
		lastFlush: now(),
	}
}

// Partition returns the partition the buffer is currently bound to.
func (b *Buffer) Partition() lake.Partition {
	return b.partition
}

// Pending returns the number of buffered rows.
func (b *Buffer) Pending() int {
	return len(b.rows)
}

// Append buffers one message's row and applies the flush policy.
// Non-persistable messages are ignored.
func (b *Buffer) Append(ctx context.Context, msg types.Message) error {
	row, ok := types.RowFromMessage(msg)
	if !ok {
		return nil
	}
	b.rows = append(b.rows, row)
	b.config.Metrics.IncRowBuffered()

	if b.ShouldFlush() {
		return b.Flush(ctx)
	}
	return nil
}

// ShouldFlush evaluates the dual-trigger flush policy: flush when more
// than FlushRows rows are pending, or when anything is pending and the
// last flush is at least FlushInterval old.
func (b *Buffer) ShouldFlush() bool {
	if len(b.rows) == 0 {
		return false
	}
	if len(b.rows) > b.config.FlushRows {
		return true
	}
	return b.now().Sub(b.lastFlush) >= b.config.FlushInterval
}

// Flush durably writes buffered rows into the bound partition, then resets
// the pending state. Flushing an empty buffer is a no-op merge.
func (b *Buffer) Flush(ctx context.Context) error {
	if err := b.sink.Merge(ctx, b.partition, b.rows); err != nil {
		b.config.Metrics.IncFlushFailure()
		return err
	}

	b.config.Metrics.IncFlush()
	b.config.Metrics.AddRowsFlushed(len(b.rows))
	b.logger.Debug("flushed rows", map[string]any{
		"partition": b.partition.Key(),
		"rows":      len(b.rows),
	})
	b.rows = nil
	b.lastFlush = b.now()
	return nil
}

// SwitchPartition flushes unconditionally, rebinds the buffer to the new
// partition, and ensures the new partition's remote object exists so later
// merges always have a base.
func (b *Buffer) SwitchPartition(ctx context.Context, next lake.Partition) error {
	if err := b.Flush(ctx); err != nil {
		return err
	}

	previous := b.partition
	b.partition = next
	if err := b.sink.Ensure(ctx, next); err != nil {
		return err
	}

	b.config.Metrics.IncPartitionSwitch()
	b.logger.Info("switched partition", map[string]any{
		"from": previous.Key(),
		"to":   next.Key(),
	})
	return nil
}
