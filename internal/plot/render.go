package plot

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/daviddao/vitals_viewer/internal/state"
)

// palette colours channels by index.
var palette = []asciigraph.AnsiColor{
	asciigraph.Red,
	asciigraph.Green,
	asciigraph.Yellow,
	asciigraph.Blue,
	asciigraph.Magenta,
	asciigraph.Cyan,
	asciigraph.White,
}

// ChannelColor returns the chart colour of channel i.
func ChannelColor(i int) asciigraph.AnsiColor {
	return palette[i%len(palette)]
}

// labelWidth is the room asciigraph takes for y labels left of the data.
const labelWidth = 12

// Render draws the plot's current series inside its current limits.
func (p *Plot) Render(width, height int, names []string) string {
	p.mu.RLock()
	series, limits := p.series, p.limits
	p.mu.RUnlock()
	return Draw(series, limits, width, height, names)
}

// Draw renders series inside limits as a line chart of roughly width by
// height cells. names label channels by index; missing names fall back to
// "ch N".
func Draw(series map[int][]float64, limits state.Bounds, width, height int, names []string) string {
	idx := Channels(series)
	if len(idx) == 0 {
		return "(no visible channels)"
	}
	if !drawable(limits, height) {
		return "(view limits out of range)"
	}
	data := project(series, idx, limits)
	if data == nil {
		return "(no samples in view)"
	}

	colors := make([]asciigraph.AnsiColor, len(idx))
	legends := make([]string, len(idx))
	for k, i := range idx {
		colors[k] = ChannelColor(i)
		legends[k] = ChannelName(names, i)
	}

	opts := []asciigraph.Option{
		asciigraph.Height(max(2, height-3)),
		asciigraph.LowerBound(limits.YMin),
		asciigraph.UpperBound(limits.YMax),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
	}
	if w := width - labelWidth; w > 0 {
		opts = append(opts, asciigraph.Width(w))
	}
	return asciigraph.PlotMany(data, opts...)
}

// ChannelName returns names[i], or a positional label past the end of names.
func ChannelName(names []string, i int) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("ch %d", i)
}

// drawable reports whether the chart can scale limits onto height rows.
func drawable(b state.Bounds, height int) bool {
	if !b.Finite() {
		return false
	}
	xs, ys := b.XMax-b.XMin, b.YMax-b.YMin
	return xs > 0 && ys > 0 && finite(xs) && finite(ys) && finite(float64(height)/ys)
}

// project cuts each series to the sample positions inside the x limits and
// clamps values into the y limits. Every returned series has the same
// length; a series that ends early holds its last value, and a value that is
// not finite repeats the one before it. It returns nil when no sample
// position falls inside the limits.
func project(series map[int][]float64, idx []int, b state.Bounds) [][]float64 {
	longest := 0
	for _, i := range idx {
		longest = max(longest, len(series[i]))
	}
	if longest == 0 {
		return nil
	}
	// Clamp in float64 so huge bounds cannot overflow int.
	from := math.Max(0, math.Ceil(b.XMin))
	to := math.Min(float64(longest-1), math.Floor(b.XMax))
	if !(from <= to) {
		return nil
	}
	first, last := int(from), int(to)

	out := make([][]float64, 0, len(idx))
	for _, i := range idx {
		s := series[i]
		row := make([]float64, 0, last-first+1)
		prev := b.YMin
		for pos := first; pos <= last; pos++ {
			v := prev
			switch {
			case pos < len(s):
				v = s[pos]
			case len(s) > 0:
				v = s[len(s)-1]
			}
			if !finite(v) {
				v = prev
			}
			v = math.Max(b.YMin, math.Min(b.YMax, v))
			row = append(row, v)
			prev = v
		}
		out = append(out, row)
	}
	return out
}
