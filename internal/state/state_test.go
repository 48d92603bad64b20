package state

import (
	"math"
	"sync"
	"testing"
)

func TestCellSameInstance(t *testing.T) {
	cs := NewCells()
	a := cs.Cell("x min")
	b := cs.Cell("x min")
	if a != b {
		t.Error("Cell should return the same instance for a name")
	}
	if a.Get() != "" {
		t.Errorf("new cell = %q, want empty", a.Get())
	}
}

func TestCellVersionBumpsOnSet(t *testing.T) {
	var c Cell
	v0 := c.Version()
	c.Set("1")
	c.Set("1")
	if c.Version() != v0+2 {
		t.Errorf("Version = %d, want %d", c.Version(), v0+2)
	}
}

func TestCellBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"true", true},
		{" on ", true},
		{"0", false},
		{"", false},
		{"yes", false},
	}
	for _, tt := range tests {
		var c Cell
		c.Set(tt.in)
		if got := c.Bool(); got != tt.want {
			t.Errorf("Bool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCellsToggle(t *testing.T) {
	cs := NewCells()
	if !cs.Toggle(LockAxis) {
		t.Error("first toggle should turn the cell on")
	}
	if cs.Toggle(LockAxis) {
		t.Error("second toggle should turn the cell off")
	}
	if got := cs.Get(LockAxis); got != "0" {
		t.Errorf("stored %q, want \"0\"", got)
	}
}

func TestCellsConcurrentAccess(t *testing.T) {
	cs := NewCells()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cs.Set(XMin, "1")
				_ = cs.Get(XMin)
				_ = cs.Bool(CopyAxis)
			}
		}()
	}
	wg.Wait()
	if cs.Get(XMin) != "1" {
		t.Errorf("x min = %q, want \"1\"", cs.Get(XMin))
	}
}

func TestFilterMissingIsHidden(t *testing.T) {
	f := NewFilter()
	if f.Visible(3) {
		t.Error("channel with no entry should be hidden")
	}
	f.Set(3, true)
	if !f.Visible(3) {
		t.Error("channel 3 should be visible after Set")
	}
	f.Set(3, false)
	if f.Visible(3) {
		t.Error("channel 3 should be hidden after overwrite")
	}
}

func TestFilterRefreshUsesPosition(t *testing.T) {
	cs := NewCells()
	names := []string{"Pressure raw", "Pressure filtered", "Breath BPM"}
	cs.SetBool("Pressure raw", true)
	cs.SetBool("Breath BPM", true)

	f := NewFilter()
	f.Refresh(names, cs.Bool)

	got := f.Snapshot()
	want := map[int]bool{0: true, 1: false, 2: true}
	if len(got) != len(want) {
		t.Fatalf("Snapshot = %v, want %v", got, want)
	}
	for i, v := range want {
		if got[i] != v {
			t.Errorf("filter[%d] = %v, want %v", i, got[i], v)
		}
	}
}

func TestFilterSnapshotIsCopy(t *testing.T) {
	f := NewFilter()
	f.Set(0, true)
	snap := f.Snapshot()
	snap[0] = false
	if !f.Visible(0) {
		t.Error("mutating a snapshot must not change the filter")
	}
}

func TestBoundsNudged(t *testing.T) {
	tests := []struct {
		name string
		in   Bounds
		want Bounds
	}{
		{"no change", Bounds{0, 10, -1, 1}, Bounds{0, 10, -1, 1}},
		{"x zero span", Bounds{5, 5, 0, 1}, Bounds{4, 5, 0, 1}},
		{"y zero span", Bounds{0, 1, 2, 2}, Bounds{0, 1, 1, 2}},
		{"both", Bounds{0, 0, 0, 0}, Bounds{-1, 0, -1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Nudged(); got != tt.want {
				t.Errorf("Nudged(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBoundsRounded(t *testing.T) {
	got := Bounds{1.234, 5.678, -0.006, 99.999}.Rounded()
	want := Bounds{1.23, 5.68, -0.01, 100}
	if got != want {
		t.Errorf("Rounded = %v, want %v", got, want)
	}
}

func TestReadWriteBounds(t *testing.T) {
	cs := NewCells()
	WriteBounds(cs, Bounds{0, 199.5, -2.126, 3})
	if cs.Get(XMax) != "199.50" {
		t.Errorf("x max = %q, want 199.50", cs.Get(XMax))
	}
	b, err := ReadBounds(cs)
	if err != nil {
		t.Fatalf("ReadBounds: %v", err)
	}
	want := Bounds{0, 199.5, -2.13, 3}
	if b.Rounded() != want.Rounded() {
		t.Errorf("ReadBounds = %v, want %v", b, want)
	}
}

func TestReadBoundsInvalid(t *testing.T) {
	cs := NewCells()
	WriteBounds(cs, Bounds{0, 1, 0, 1})
	cs.Set(YMin, "abc")
	if _, err := ReadBounds(cs); err == nil {
		t.Fatal("ReadBounds should fail on non-numeric field")
	}
	if cs.Get(YMin) != "abc" || cs.Get(XMin) != "0.00" {
		t.Error("ReadBounds must not modify the cells")
	}
}

func TestReadBoundsNonFinite(t *testing.T) {
	for _, v := range []string{"nan", "NaN", "inf", "+Inf", "-Infinity", "1e400"} {
		t.Run(v, func(t *testing.T) {
			cs := NewCells()
			WriteBounds(cs, Bounds{XMin: 0, XMax: 10, YMin: 0, YMax: 1})
			cs.Set(YMin, v)
			if b, err := ReadBounds(cs); err == nil {
				t.Errorf("ReadBounds with y min %q = %v, want an error", v, b)
			}
		})
	}
}

func TestBoundsFinite(t *testing.T) {
	if !(Bounds{XMin: -1, XMax: 1, YMin: -1e300, YMax: 1e300}).Finite() {
		t.Error("large finite bounds should be finite")
	}
	if (Bounds{XMax: math.NaN()}).Finite() {
		t.Error("NaN bound should not be finite")
	}
	if (Bounds{YMin: math.Inf(-1)}).Finite() {
		t.Error("infinite bound should not be finite")
	}
}
