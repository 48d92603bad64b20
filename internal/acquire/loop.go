// Package acquire runs the acquisition loop: it drains decoded samples from
// the inbound queue into per-channel buffers and pushes the visible, most
// recent part of each buffer to the plot.
package acquire

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/daviddao/vitals_viewer/internal/sample"
	"github.com/daviddao/vitals_viewer/internal/state"
)

// DefaultWindow is how many of the newest values per channel reach the plot.
const DefaultWindow = 200

// Sink receives the windowed view once per cycle.
type Sink interface {
	Update(view map[int][]float64)
}

// Stats are counters published by a running Loop.
type Stats struct {
	Cycles   uint64 // cycles that delivered a view
	Tuples   uint64 // tuples drained from the queue
	Channels int    // channel indices observed so far
}

// Loop drains Queue into its Store and delivers windows to Sink.
type Loop struct {
	Queue  *sample.Queue[sample.Tuple]
	Filter *state.Filter
	Sink   Sink

	StartDelay time.Duration // before the first cycle
	Cadence    time.Duration // before every cycle
	Idle       time.Duration // extra wait when the queue is empty
	Window     int

	store    Store
	cycles   atomic.Uint64
	tuples   atomic.Uint64
	channels atomic.Int64
}

// New returns a loop with the default cadence, idle delay and window.
func New(q *sample.Queue[sample.Tuple], f *state.Filter, sink Sink) *Loop {
	return &Loop{
		Queue:      q,
		Filter:     f,
		Sink:       sink,
		StartDelay: time.Second,
		Cadence:    100 * time.Millisecond,
		Idle:       500 * time.Millisecond,
		Window:     DefaultWindow,
	}
}

// Run cycles until ctx is done. Cancellation is the only way out and is not
// reported as an error.
func (l *Loop) Run(ctx context.Context) error {
	log.Printf("acquire: started (cadence %s, idle %s, window %d)", l.Cadence, l.Idle, l.window())
	defer log.Printf("acquire: stopped after %d cycles", l.cycles.Load())

	if !sleep(ctx, l.StartDelay) {
		return nil
	}
	for {
		if !sleep(ctx, l.Cadence) {
			return nil
		}
		if l.Queue.Empty() {
			if !sleep(ctx, l.Idle) {
				return nil
			}
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		l.Step()
	}
}

// Step runs one drain-and-deliver cycle without waiting. It reports how many
// tuples were drained.
func (l *Loop) Step() int {
	n := l.Drain()
	if n == 0 {
		return 0
	}
	l.Sink.Update(l.View())
	l.cycles.Add(1)
	return n
}

// Drain moves every tuple currently queued into the store.
func (l *Loop) Drain() int {
	before := l.store.Channels()
	n := 0
	for {
		t, ok := l.Queue.Get()
		if !ok {
			break
		}
		l.store.Append(t)
		n++
	}
	if after := l.store.Channels(); after > before {
		log.Printf("acquire: %d new channel(s), %d total", after-before, after)
		l.channels.Store(int64(after))
	}
	l.tuples.Add(uint64(n))
	return n
}

// View builds the windowed view for the channels currently visible.
func (l *Loop) View() map[int][]float64 {
	return l.store.Window(l.window(), l.Filter.Visible)
}

// BufferLen returns the buffer length of channel i. Only safe from the
// goroutine that runs the loop, or once it has stopped.
func (l *Loop) BufferLen(i int) int {
	return l.store.Len(i)
}

// Stats returns the current counters. Safe from any goroutine.
func (l *Loop) Stats() Stats {
	return Stats{
		Cycles:   l.cycles.Load(),
		Tuples:   l.tuples.Load(),
		Channels: int(l.channels.Load()),
	}
}

func (l *Loop) window() int {
	if l.Window <= 0 {
		return DefaultWindow
	}
	return l.Window
}

// sleep waits d or until ctx is done, reporting false on cancellation.
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
