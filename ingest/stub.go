package ingest

import (
	"context"
	"sync"

	"github.com/barrage-archive/barrage/lake"
	"github.com/barrage-archive/barrage/types"
)

// MergeOp records one Merge call for test assertions.
type MergeOp struct {
	Partition lake.Partition
	Rows      []types.Row
}

// StubSink is a Sink that records operations without persisting.
type StubSink struct {
	mu sync.Mutex

	// Merges holds every Merge call in order.
	Merges []MergeOp
	// Ensured holds every Ensure call in order.
	Ensured []lake.Partition
	// ErrOnMerge, if non-nil, is returned by Merge.
	ErrOnMerge error
}

// NewStubSink creates an empty recording sink.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// Merge implements Sink.
func (s *StubSink) Merge(_ context.Context, p lake.Partition, rows []types.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrOnMerge != nil {
		return s.ErrOnMerge
	}
	copied := make([]types.Row, len(rows))
	copy(copied, rows)
	s.Merges = append(s.Merges, MergeOp{Partition: p, Rows: copied})
	return nil
}

// Ensure implements Sink.
func (s *StubSink) Ensure(_ context.Context, p lake.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Ensured = append(s.Ensured, p)
	return nil
}

// RowsMerged returns the total number of rows across non-empty merges.
func (s *StubSink) RowsMerged() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, op := range s.Merges {
		total += len(op.Rows)
	}
	return total
}

// NonEmptyMerges returns the count of merges that carried rows.
func (s *StubSink) NonEmptyMerges() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, op := range s.Merges {
		if len(op.Rows) > 0 {
			n++
		}
	}
	return n
}
