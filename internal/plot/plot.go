// Package plot is the render sink: it keeps the latest windowed view and the
// view limits, and draws the visible part as a terminal line chart.
//
// Limits follow the data (autoscale) until something sets them explicitly,
// either the axis lock or an interactive pan/zoom. Autoscale can be turned
// back on with Autoscale.
package plot

import (
	"math"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/daviddao/vitals_viewer/internal/state"
)

// margin is the fraction of the y span added above and below the data when
// autoscaling.
const margin = 0.05

// Plot is safe for concurrent use: the acquisition loop calls Update, the
// reconciliation loop drives the limits, and the UI renders.
type Plot struct {
	mu        sync.RWMutex
	series    map[int][]float64
	limits    state.Bounds
	autoscale bool
	updates   uint64
}

// New returns an autoscaling plot with the given initial limits.
func New(initial state.Bounds) *Plot {
	return &Plot{
		series:    map[int][]float64{},
		limits:    initial.Nudged(),
		autoscale: true,
	}
}

// Update replaces the drawn series. The plot keeps view; callers must not
// modify it afterwards.
func (p *Plot) Update(view map[int][]float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series = view
	p.updates++
	if p.autoscale {
		p.limits = dataLimits(view, p.limits)
	}
}

// ViewLimits returns the current limits.
func (p *Plot) ViewLimits() state.Bounds {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.limits
}

// SetViewLimits fixes the limits and stops autoscaling. Bounds that are not
// finite are ignored.
func (p *Plot) SetViewLimits(b state.Bounds) {
	if !b.Finite() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limits = b.Nudged()
	p.autoscale = false
}

// Autoscale resumes following the data and rescales immediately.
func (p *Plot) Autoscale() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autoscale = true
	p.limits = dataLimits(p.series, p.limits)
}

// Autoscaling reports whether limits currently follow the data.
func (p *Plot) Autoscaling() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.autoscale
}

// Pan shifts the view by the given fractions of its current span.
func (p *Plot) Pan(fx, fy float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := p.limits
	dx := (b.XMax - b.XMin) * fx
	dy := (b.YMax - b.YMin) * fy
	next := state.Bounds{XMin: b.XMin + dx, XMax: b.XMax + dx, YMin: b.YMin + dy, YMax: b.YMax + dy}
	if next.Finite() {
		p.limits = next
	}
	p.autoscale = false
}

// Zoom scales both spans about their centres. factor < 1 zooms in.
func (p *Plot) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	b := p.limits
	cx, cy := (b.XMin+b.XMax)/2, (b.YMin+b.YMax)/2
	hx, hy := (b.XMax-b.XMin)/2*factor, (b.YMax-b.YMin)/2*factor
	next := state.Bounds{XMin: cx - hx, XMax: cx + hx, YMin: cy - hy, YMax: cy + hy}.Nudged()
	if next.Finite() {
		p.limits = next
	}
	p.autoscale = false
}

// Series returns a copy of the current series.
func (p *Plot) Series() map[int][]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[int][]float64, len(p.series))
	for i, s := range p.series {
		out[i] = slices.Clone(s)
	}
	return out
}

// Updates counts calls to Update.
func (p *Plot) Updates() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updates
}

// Channels returns the indices currently drawn, ascending.
func Channels(series map[int][]float64) []int {
	idx := lo.Keys(series)
	slices.Sort(idx)
	return idx
}

// dataLimits spans every sample position on x and the finite value range
// plus a margin on y. Without finite data, or if the result overflows, it
// keeps prev.
func dataLimits(series map[int][]float64, prev state.Bounds) state.Bounds {
	longest := 0
	low, high := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		longest = max(longest, len(s))
		for _, v := range s {
			if !finite(v) {
				continue
			}
			low = math.Min(low, v)
			high = math.Max(high, v)
		}
	}
	if longest == 0 || low > high {
		return prev
	}
	pad := (high - low) * margin
	b := state.Bounds{
		XMin: 0,
		XMax: float64(longest - 1),
		YMin: low - pad,
		YMax: high + pad,
	}.Nudged()
	if !b.Finite() {
		return prev
	}
	return b
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
