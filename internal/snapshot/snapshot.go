// Package snapshot builds immutable snapshots of the acquisition pipeline.
//
// A DataSnapshot captures what the plot currently shows, its limits, the
// filter, and the transport and loop counters at a point in time. The UI
// rebuilds one on every refresh tick and swaps it into its model, so
// rendering never touches live state.
package snapshot

import (
	"errors"
	"time"

	"github.com/daviddao/vitals_viewer/internal/acquire"
	"github.com/daviddao/vitals_viewer/internal/datasource"
	"github.com/daviddao/vitals_viewer/internal/plot"
	"github.com/daviddao/vitals_viewer/internal/sample"
	"github.com/daviddao/vitals_viewer/internal/state"
)

// Sources are the live objects a snapshot is read from. Only Plot is
// required.
type Sources struct {
	Plot   *plot.Plot
	Loop   *acquire.Loop
	Filter *state.Filter
	Device *datasource.Device
	Queue  *sample.Queue[sample.Tuple]
}

// DataSnapshot is an immutable, self-contained view of the pipeline.
type DataSnapshot struct {
	Series    map[int][]float64 // windowed view last delivered to the plot
	Channels  []int             // keys of Series, ascending
	Limits    state.Bounds
	Autoscale bool
	Filter    map[int]bool

	// Loop counters.
	Acquire acquire.Stats
	Backlog int // tuples waiting in the sample queue

	// Transport.
	Port      string
	Connected bool
	Lines     uint64
	Dropped   uint64
	Sent      uint64

	// Timestamp of snapshot creation.
	BuiltAt time.Time
}

// Build reads every source and returns a snapshot.
func Build(src Sources) (*DataSnapshot, error) {
	if src.Plot == nil {
		return nil, errors.New("snapshot: no plot")
	}

	series := src.Plot.Series()
	snap := &DataSnapshot{
		Series:    series,
		Channels:  plot.Channels(series),
		Limits:    src.Plot.ViewLimits(),
		Autoscale: src.Plot.Autoscaling(),
		Filter:    map[int]bool{},
		BuiltAt:   time.Now(),
	}
	if src.Filter != nil {
		snap.Filter = src.Filter.Snapshot()
	}
	if src.Loop != nil {
		snap.Acquire = src.Loop.Stats()
	}
	if src.Queue != nil {
		snap.Backlog = src.Queue.Len()
	}
	if src.Device != nil {
		snap.Port = src.Device.Name()
		snap.Connected = src.Device.Connected()
		snap.Lines, snap.Dropped, snap.Sent = src.Device.Counters()
	}
	return snap, nil
}

// Latest returns the newest value of channel i, and false if the channel is
// not in the snapshot.
func (s *DataSnapshot) Latest(i int) (float64, bool) {
	v := s.Series[i]
	if len(v) == 0 {
		return 0, false
	}
	return v[len(v)-1], true
}
