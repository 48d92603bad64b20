// Package reconcile runs the interface reconciliation loop. Each cycle it
// forces the plot onto the user's axis bounds (Lock), or mirrors the plot's
// live bounds back into the fields (Copy), then refreshes the channel
// filter from the named toggles.
package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/daviddao/vitals_viewer/internal/state"
)

// Limiter is the part of the plot the loop drives.
type Limiter interface {
	ViewLimits() state.Bounds
	SetViewLimits(b state.Bounds)
}

// Result describes what one cycle did.
type Result struct {
	Locked   bool  // bounds were pushed to the plot
	Copied   bool  // plot bounds were written back to the cells
	Filtered bool  // filter state was refreshed
	Err      error // lock fields did not parse; the rest of the cycle was skipped
}

// Loop reconciles Cells with the plot and the filter.
type Loop struct {
	Cells   *state.Cells
	Filter  *state.Filter
	Plot    Limiter
	Filters []string // ordered; position is channel index

	StartDelay time.Duration
	Cadence    time.Duration

	failing bool
}

// New returns a loop with the default start delay and cadence.
func New(cells *state.Cells, filter *state.Filter, plot Limiter, filters []string) *Loop {
	return &Loop{
		Cells:      cells,
		Filter:     filter,
		Plot:       plot,
		Filters:    filters,
		StartDelay: time.Second,
		Cadence:    400 * time.Millisecond,
	}
}

// Run cycles until ctx is done and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	log.Printf("reconcile: started (cadence %s, %d filters)", l.Cadence, len(l.Filters))
	defer log.Printf("reconcile: stopped")

	if !sleep(ctx, l.StartDelay) {
		return nil
	}
	for {
		if !sleep(ctx, l.Cadence) {
			return nil
		}
		l.step(ctx)
	}
}

// Step runs a single cycle immediately.
func (l *Loop) Step() Result {
	return l.step(context.Background())
}

func (l *Loop) step(ctx context.Context) Result {
	var r Result
	if ctx.Err() != nil {
		return r
	}
	if l.Cells.Bool(state.LockAxis) {
		b, err := state.ReadBounds(l.Cells)
		if err != nil {
			// Only the first failure of a streak is worth a log line.
			if !l.failing {
				log.Printf("reconcile: lock skipped: %v", err)
			}
			l.failing = true
			r.Err = err
			return r
		}
		l.failing = false
		l.Plot.SetViewLimits(b.Nudged())
		r.Locked = true
	}

	if ctx.Err() != nil {
		return r
	}
	if l.Cells.Bool(state.CopyAxis) {
		state.WriteBounds(l.Cells, l.Plot.ViewLimits())
		r.Copied = true
	}

	if ctx.Err() != nil {
		return r
	}
	l.Filter.Refresh(l.Filters, l.Cells.Bool)
	r.Filtered = true
	return r
}

func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
