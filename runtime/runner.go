// Package runtime orchestrates the archiver: one task per monitored room,
// each owning a chat session, a row buffer, and the day-rollover clock.
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/barrage-archive/barrage/feed"
	"github.com/barrage-archive/barrage/ingest"
	"github.com/barrage-archive/barrage/lake"
	"github.com/barrage-archive/barrage/log"
	"github.com/barrage-archive/barrage/metrics"
	"github.com/barrage-archive/barrage/session"
	"github.com/barrage-archive/barrage/types"
)

const (
	// maintenanceInterval is how often an idle room re-evaluates the
	// flush policy and the rollover clock without waiting for traffic.
	maintenanceInterval = 30 * time.Second
	// shutdownFlushTimeout bounds the terminal flush once the parent
	// context is already gone.
	shutdownFlushTimeout = 30 * time.Second
)

// Stream is a started room's decoded output.
type Stream interface {
	// Messages is closed when the stream ends.
	Messages() <-chan types.Message
	// Err reports why the stream ended; nil for a requested stop.
	// Only valid after Messages is closed.
	Err() error
}

// Source starts a room's message stream. It exists so tests can feed a
// runner without a live connection.
type Source interface {
	Start(ctx context.Context) (Stream, error)
}

// SessionSource adapts a chat session to the Source boundary.
type SessionSource struct {
	Session *session.Session
}

func (s SessionSource) Start(ctx context.Context) (Stream, error) {
	stream, err := s.Session.Start(ctx)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// RunnerConfig wires one room's task.
type RunnerConfig struct {
	// RoomID is the monitored room (required).
	RoomID int64
	// Source starts the room's message stream (required).
	Source Source
	// Buffer is the room's row buffer (required).
	Buffer *ingest.Buffer
	// Publisher fans messages out live. Nil disables the feed.
	Publisher feed.Publisher
	// Collector receives per-room counters. Nil disables collection.
	Collector *metrics.Collector
	// Logger is the room-scoped logger.
	Logger *log.Logger
	// Clock overrides time.Now for tests. It drives the rollover check.
	Clock func() time.Time
}

// RoomRunner is one room's archiving task: it consumes the message
// stream, routes rows into the buffer, fans messages out to the feed,
// and rebinds the buffer at local midnight.
//
// A runner is single-threaded over its buffer; Run must not be called
// concurrently.
type RoomRunner struct {
	roomID    int64
	source    Source
	buffer    *ingest.Buffer
	publisher feed.Publisher
	collector *metrics.Collector
	logger    *log.Logger
	now       func() time.Time
}

// NewRoomRunner creates a runner from the given wiring.
func NewRoomRunner(cfg RunnerConfig) *RoomRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &RoomRunner{
		roomID:    cfg.RoomID,
		source:    cfg.Source,
		buffer:    cfg.Buffer,
		publisher: cfg.Publisher,
		collector: cfg.Collector,
		logger:    logger,
		now:       now,
	}
}

// Collector returns the runner's metrics collector (possibly nil).
func (r *RoomRunner) Collector() *metrics.Collector {
	return r.collector
}

// Run starts the stream and consumes it until it ends or ctx is
// cancelled. Buffered rows are flushed before returning, regardless of
// how the run ends. A non-nil return means the room failed and cannot
// continue.
func (r *RoomRunner) Run(ctx context.Context) error {
	stream, err := r.source.Start(ctx)
	if err != nil {
		return fmt.Errorf("room %d: %w", r.roomID, err)
	}

	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-stream.Messages():
			if !ok {
				return r.finish(stream.Err())
			}
			if err := r.handle(ctx, msg); err != nil {
				r.finish(nil)
				return fmt.Errorf("room %d: %w", r.roomID, err)
			}

		case <-ticker.C:
			if err := r.maintain(ctx); err != nil {
				r.finish(nil)
				return fmt.Errorf("room %d: %w", r.roomID, err)
			}

		case <-ctx.Done():
			// Drain whatever the stream already delivered, then stop.
			for {
				select {
				case msg, ok := <-stream.Messages():
					if !ok {
						return r.finish(stream.Err())
					}
					if err := r.handle(ctx, msg); err != nil {
						r.finish(nil)
						return fmt.Errorf("room %d: %w", r.roomID, err)
					}
					continue
				default:
				}
				break
			}
			return r.finish(nil)
		}
	}
}

// handle routes one decoded message: count it, fan it out, roll the
// partition if the local day changed, and buffer its row.
func (r *RoomRunner) handle(ctx context.Context, msg types.Message) error {
	r.collector.IncMessage(string(msg.Kind))

	if r.publisher != nil {
		if event, ok := feed.FromMessage(r.roomID, msg); ok {
			// The feed is best-effort; a dead consumer must not stall
			// archiving.
			if err := r.publisher.Publish(ctx, event); err != nil {
				r.logger.Warn("feed publish failed", map[string]any{
					"error": err.Error(),
				})
			}
		}
	}

	if err := r.rolloverIfDue(ctx); err != nil {
		return err
	}
	return r.buffer.Append(ctx, msg)
}

// maintain runs the traffic-independent checks: rollover and the
// staleness flush trigger.
func (r *RoomRunner) maintain(ctx context.Context) error {
	if err := r.rolloverIfDue(ctx); err != nil {
		return err
	}
	if r.buffer.ShouldFlush() {
		return r.buffer.Flush(ctx)
	}
	return nil
}

// rolloverIfDue rebinds the buffer when the processing wall clock has
// crossed local midnight. The wall clock, not message timestamps,
// decides the day: late-arriving rows land in the day they were
// processed.
func (r *RoomRunner) rolloverIfDue(ctx context.Context) error {
	next := lake.PartitionFor(r.roomID, r.now().Unix())
	if next.Day <= r.buffer.Partition().Day {
		return nil
	}
	if err := r.buffer.SwitchPartition(ctx, next); err != nil {
		return fmt.Errorf("partition rollover: %w", err)
	}
	return nil
}

// finish flushes the remaining rows on a fresh context and folds the
// stream's terminal error in.
func (r *RoomRunner) finish(streamErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()

	flushErr := r.buffer.Flush(ctx)
	if flushErr != nil {
		r.logger.Error("terminal flush failed", map[string]any{
			"error": flushErr.Error(),
		})
	}

	if streamErr != nil {
		return fmt.Errorf("room %d: %w", r.roomID, streamErr)
	}
	if flushErr != nil {
		return fmt.Errorf("room %d: terminal flush: %w", r.roomID, flushErr)
	}
	return nil
}
