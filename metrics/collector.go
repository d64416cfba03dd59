// Package metrics accumulates per-room counters for one archiving session.
//
// The Collector is a leaf package with no internal dependencies. All
// increment methods are nil-receiver safe, so callers never need to guard
// against an unconfigured collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of a room's counters.
// Safe to read concurrently after creation.
type Snapshot struct {
	// Stream
	MessagesReceived int64
	MessagesByKind   map[string]int64

	// Ingestion
	RowsBuffered int64
	RowsFlushed  int64

	// Persistence (per merge call, not per row)
	Flushes           int64
	FlushFailures     int64
	PartitionSwitches int64

	// Dimensions (informational, set at construction)
	RoomID    int64
	SessionID string
}

// Collector accumulates counters for a single room's session.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	messagesReceived int64
	messagesByKind   map[string]int64

	rowsBuffered int64
	rowsFlushed  int64

	flushes           int64
	flushFailures     int64
	partitionSwitches int64

	roomID    int64
	sessionID string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(roomID int64, sessionID string) *Collector {
	return &Collector{
		messagesByKind: make(map[string]int64),
		roomID:         roomID,
		sessionID:      sessionID,
	}
}

// IncMessage records one decoded message of the given kind.
func (c *Collector) IncMessage(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesReceived++
	c.messagesByKind[kind]++
	c.mu.Unlock()
}

// IncRowBuffered records one row entering the pending buffer.
func (c *Collector) IncRowBuffered() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rowsBuffered++
	c.mu.Unlock()
}

// AddRowsFlushed records n rows durably written by one merge.
func (c *Collector) AddRowsFlushed(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rowsFlushed += int64(n)
	c.mu.Unlock()
}

// IncFlush records one successful merge call.
func (c *Collector) IncFlush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.flushes++
	c.mu.Unlock()
}

// IncFlushFailure records one failed merge call.
func (c *Collector) IncFlushFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.flushFailures++
	c.mu.Unlock()
}

// IncPartitionSwitch records one day-rollover rebind.
func (c *Collector) IncPartitionSwitch() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.partitionSwitches++
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all counters.
// The Collector can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.messagesByKind))
	for k, v := range c.messagesByKind {
		byKind[k] = v
	}

	return Snapshot{
		MessagesReceived: c.messagesReceived,
		MessagesByKind:   byKind,

		RowsBuffered: c.rowsBuffered,
		RowsFlushed:  c.rowsFlushed,

		Flushes:           c.flushes,
		FlushFailures:     c.flushFailures,
		PartitionSwitches: c.partitionSwitches,

		RoomID:    c.roomID,
		SessionID: c.sessionID,
	}
}
