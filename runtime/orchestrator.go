package runtime

import (
	"context"
	"errors"
	"sync"

	"github.com/barrage-archive/barrage/log"
	"github.com/barrage-archive/barrage/metrics"
)

// Orchestrator runs one task per room and fails fast: the first room
// that dies fatally takes the whole fleet down, so a supervisor can
// restart the process into a known-clean state.
type Orchestrator struct {
	runners []*RoomRunner
	logger  *log.Logger
}

// NewOrchestrator creates an orchestrator over the given runners.
func NewOrchestrator(runners []*RoomRunner, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Orchestrator{runners: runners, logger: logger}
}

// Run blocks until every room task has returned. Cancelling ctx is the
// clean shutdown path. The first fatal room error cancels the rest of
// the fleet and is returned after all tasks finish their terminal
// flushes.
func (o *Orchestrator) Run(ctx context.Context) error {
	if len(o.runners) == 0 {
		return errors.New("runtime: no rooms configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, r := range o.runners {
		wg.Add(1)
		go func(r *RoomRunner) {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()

				o.logger.Error("room task failed, stopping fleet", map[string]any{
					"error": err.Error(),
				})
				cancel()
			}
		}(r)
	}

	wg.Wait()
	return firstErr
}

// Snapshots returns one metrics snapshot per room, for exit reporting.
func (o *Orchestrator) Snapshots() []metrics.Snapshot {
	out := make([]metrics.Snapshot, 0, len(o.runners))
	for _, r := range o.runners {
		out = append(out, r.Collector().Snapshot())
	}
	return out
}
