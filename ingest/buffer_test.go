package ingest_test

import (
	"io"
	"testing"
	"time"

	"github.com/barrage-archive/barrage/ingest"
	"github.com/barrage-archive/barrage/lake"
	"github.com/barrage-archive/barrage/log"
	"github.com/barrage-archive/barrage/types"
)

// fakeClock is a manually advanced clock for flush-policy tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBuffer(t *testing.T, clock *fakeClock) (*ingest.Buffer, *ingest.StubSink) {
	t.Helper()
	sink := ingest.NewStubSink()
	p := lake.PartitionFor(42, clock.now.Unix())
	buf := ingest.NewBuffer(42, p, sink, ingest.Config{Clock: clock.Now}, log.NewLoggerWithWriter(io.Discard))
	return buf, sink
}

func danmuMessage(uid uint64, text string) types.Message {
	return types.Message{Kind: types.KindDanmu, Danmu: &types.Danmu{
		UID:       uid,
		Username:  "user",
		Text:      text,
		Timestamp: 1720796606000,
	}}
}

func TestFlushThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1720796606, 0)}
	buf, sink := newTestBuffer(t, clock)

	// 100 appends with no time passing: everything stays buffered.
	for i := range 100 {
		if err := buf.Append(t.Context(), danmuMessage(uint64(i), "msg")); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}
	if len(sink.Merges) != 0 {
		t.Fatalf("expected no flush at 100 pending rows, got %d merges", len(sink.Merges))
	}
	if buf.Pending() != 100 {
		t.Fatalf("expected 100 pending, got %d", buf.Pending())
	}

	// The 101st append crosses the threshold and flushes everything.
	if err := buf.Append(t.Context(), danmuMessage(101, "tip")); err != nil {
		t.Fatalf("append 101 failed: %v", err)
	}
	if sink.NonEmptyMerges() != 1 {
		t.Fatalf("expected exactly one flush, got %d", sink.NonEmptyMerges())
	}
	if sink.RowsMerged() != 101 {
		t.Errorf("expected all 101 rows flushed, got %d", sink.RowsMerged())
	}
	if buf.Pending() != 0 {
		t.Errorf("pending must reset after flush, got %d", buf.Pending())
	}
}

func TestFlushInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1720796606, 0)}
	buf, sink := newTestBuffer(t, clock)

	if err := buf.Append(t.Context(), danmuMessage(1, "early")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if len(sink.Merges) != 0 {
		t.Fatal("one fresh row must not flush")
	}

	// Under five minutes: still buffered.
	clock.Advance(4 * time.Minute)
	if err := buf.Append(t.Context(), danmuMessage(2, "later")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if len(sink.Merges) != 0 {
		t.Fatal("stale-but-under-interval rows must not flush")
	}

	// Crossing five minutes since the last flush triggers one.
	clock.Advance(time.Minute)
	if err := buf.Append(t.Context(), danmuMessage(3, "now")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if sink.NonEmptyMerges() != 1 {
		t.Fatalf("expected interval flush, got %d merges", sink.NonEmptyMerges())
	}
	if sink.RowsMerged() != 3 {
		t.Errorf("expected 3 rows flushed, got %d", sink.RowsMerged())
	}
}

func TestEmptyBufferNeverTimeFlushes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1720796606, 0)}
	buf, _ := newTestBuffer(t, clock)

	clock.Advance(time.Hour)
	if buf.ShouldFlush() {
		t.Error("an empty buffer must never report a pending flush")
	}
}

func TestNonPersistableMessagesAreDropped(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1720796606, 0)}
	buf, _ := newTestBuffer(t, clock)

	enter := types.Message{Kind: types.KindEnterRoom, EnterRoom: &types.EnterRoom{UID: 1}}
	count := types.Message{Kind: types.KindOnlineCount, OnlineCount: &types.OnlineCount{Count: 7}}

	if err := buf.Append(t.Context(), enter); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := buf.Append(t.Context(), count); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if buf.Pending() != 0 {
		t.Errorf("enter_room/online_count must not buffer rows, got %d pending", buf.Pending())
	}
}

func TestSwitchPartition(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1720796606, 0)} // 2024-07-12 local
	buf, sink := newTestBuffer(t, clock)

	if err := buf.Append(t.Context(), danmuMessage(1, "day one")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	next := lake.PartitionFor(42, 1720800026) // 2024-07-13 local
	if err := buf.SwitchPartition(t.Context(), next); err != nil {
		t.Fatalf("switch failed: %v", err)
	}

	// The old day's rows flushed exactly once, into the old partition.
	if sink.NonEmptyMerges() != 1 {
		t.Fatalf("expected one flush on switch, got %d", sink.NonEmptyMerges())
	}
	if sink.Merges[0].Partition.Day != "2024-07-12" {
		t.Errorf("rows flushed into wrong partition: %s", sink.Merges[0].Partition.Key())
	}

	// The new partition's object was ensured.
	if len(sink.Ensured) != 1 || sink.Ensured[0].Day != "2024-07-13" {
		t.Errorf("new partition not ensured: %+v", sink.Ensured)
	}

	// Later appends land in the new partition.
	if err := buf.Append(t.Context(), danmuMessage(2, "day two")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := buf.Flush(t.Context()); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	last := sink.Merges[len(sink.Merges)-1]
	if last.Partition.Day != "2024-07-13" || len(last.Rows) != 1 {
		t.Errorf("post-switch rows landed wrong: %+v", last)
	}
}

func TestSwitchPartitionFlushesEvenWhenEmpty(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1720796606, 0)}
	buf, sink := newTestBuffer(t, clock)

	next := lake.PartitionFor(42, 1720800026)
	if err := buf.SwitchPartition(t.Context(), next); err != nil {
		t.Fatalf("switch failed: %v", err)
	}

	// The unconditional flush happened (as an empty merge), and the buffer
	// rebound.
	if len(sink.Merges) != 1 || len(sink.Merges[0].Rows) != 0 {
		t.Errorf("expected one empty merge, got %+v", sink.Merges)
	}
	if buf.Partition() != next {
		t.Errorf("buffer not rebound: %s", buf.Partition().Key())
	}
}
