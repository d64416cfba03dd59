package feed

import (
	"context"
	"sync"
)

// StubPublisher records published events in memory, for tests.
type StubPublisher struct {
	mu     sync.Mutex
	events []Event

	// ErrOnPublish, when set, is returned by every Publish call.
	ErrOnPublish error
	closed       bool
}

// NewStubPublisher creates an empty stub.
func NewStubPublisher() *StubPublisher {
	return &StubPublisher{}
}

// Publish records the event.
func (s *StubPublisher) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrOnPublish != nil {
		return s.ErrOnPublish
	}
	s.events = append(s.events, event)
	return nil
}

// Close marks the stub closed.
func (s *StubPublisher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Events returns a copy of everything published so far.
func (s *StubPublisher) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Closed reports whether Close was called.
func (s *StubPublisher) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ Publisher = (*StubPublisher)(nil)
