package state

import (
	"fmt"
	"math"
)

// Bounds are the view limits of the plot.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Nudged returns b with each zero-span axis widened by moving its minimum
// down by one.
func (b Bounds) Nudged() Bounds {
	if b.XMin == b.XMax {
		b.XMin--
	}
	if b.YMin == b.YMax {
		b.YMin--
	}
	return b
}

// Rounded returns b with every bound rounded to two decimals.
func (b Bounds) Rounded() Bounds {
	r := func(v float64) float64 { return math.Round(v*100) / 100 }
	return Bounds{XMin: r(b.XMin), XMax: r(b.XMax), YMin: r(b.YMin), YMax: r(b.YMax)}
}

// Finite reports whether every bound is a finite number.
func (b Bounds) Finite() bool {
	for _, v := range []float64{b.XMin, b.XMax, b.YMin, b.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (b Bounds) String() string {
	return fmt.Sprintf("x[%.2f, %.2f] y[%.2f, %.2f]", b.XMin, b.XMax, b.YMin, b.YMax)
}

// ReadBounds parses the four axis cells. It fails on the first field that is
// not a finite number and leaves the cells untouched.
func ReadBounds(cs *Cells) (Bounds, error) {
	var b Bounds
	fields := []struct {
		name string
		dst  *float64
	}{
		{XMin, &b.XMin},
		{XMax, &b.XMax},
		{YMin, &b.YMin},
		{YMax, &b.YMax},
	}
	for _, f := range fields {
		v, err := cs.Cell(f.name).Float()
		if err != nil {
			return Bounds{}, fmt.Errorf("axis field %q: %w", f.name, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Bounds{}, fmt.Errorf("axis field %q: %v is not finite", f.name, v)
		}
		*f.dst = v
	}
	return b, nil
}

// WriteBounds stores b into the four axis cells with two decimals.
func WriteBounds(cs *Cells, b Bounds) {
	cs.Set(XMin, fmt.Sprintf("%.2f", b.XMin))
	cs.Set(XMax, fmt.Sprintf("%.2f", b.XMax))
	cs.Set(YMin, fmt.Sprintf("%.2f", b.YMin))
	cs.Set(YMax, fmt.Sprintf("%.2f", b.YMax))
}
