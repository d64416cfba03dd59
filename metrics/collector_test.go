package metrics_test

import (
	"sync"
	"testing"

	"github.com/barrage-archive/barrage/metrics"
)

func TestCollectorCounters(t *testing.T) {
	c := metrics.NewCollector(42, "sess-1")

	c.IncMessage("danmu")
	c.IncMessage("danmu")
	c.IncMessage("super_chat")
	c.IncRowBuffered()
	c.IncRowBuffered()
	c.IncRowBuffered()
	c.IncFlush()
	c.AddRowsFlushed(3)
	c.IncFlushFailure()
	c.IncPartitionSwitch()

	snap := c.Snapshot()
	if snap.MessagesReceived != 3 {
		t.Errorf("messages received: got %d, want 3", snap.MessagesReceived)
	}
	if snap.MessagesByKind["danmu"] != 2 || snap.MessagesByKind["super_chat"] != 1 {
		t.Errorf("by-kind counts wrong: %v", snap.MessagesByKind)
	}
	if snap.RowsBuffered != 3 || snap.RowsFlushed != 3 {
		t.Errorf("row counts wrong: buffered=%d flushed=%d", snap.RowsBuffered, snap.RowsFlushed)
	}
	if snap.Flushes != 1 || snap.FlushFailures != 1 || snap.PartitionSwitches != 1 {
		t.Errorf("persistence counts wrong: %+v", snap)
	}
	if snap.RoomID != 42 || snap.SessionID != "sess-1" {
		t.Errorf("dimensions wrong: %+v", snap)
	}
}

func TestCollectorNilSafe(t *testing.T) {
	var c *metrics.Collector
	c.IncMessage("danmu")
	c.IncRowBuffered()
	c.AddRowsFlushed(5)
	c.IncFlush()
	c.IncFlushFailure()
	c.IncPartitionSwitch()

	snap := c.Snapshot()
	if snap.MessagesReceived != 0 {
		t.Errorf("nil collector must be inert, got %+v", snap)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	c := metrics.NewCollector(1, "s")
	c.IncMessage("danmu")

	snap := c.Snapshot()
	snap.MessagesByKind["danmu"] = 99

	if c.Snapshot().MessagesByKind["danmu"] != 1 {
		t.Error("mutating a snapshot must not affect the collector")
	}
}

func TestCollectorConcurrency(t *testing.T) {
	c := metrics.NewCollector(1, "s")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.IncMessage("danmu")
			}
		}()
	}
	wg.Wait()

	if got := c.Snapshot().MessagesReceived; got != 800 {
		t.Errorf("expected 800 messages, got %d", got)
	}
}
