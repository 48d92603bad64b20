// Package state holds the values shared between the UI and the two
// background loops: named cells bound to UI controls, the per-channel filter
// map, and the axis bounds.
//
// Nothing here coordinates the loops. Each individual read or write is
// synchronised, and readers accept a value that is one cycle stale.
package state

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Cell names bound to the graph control panel.
const (
	LockAxis = "Lock axis"
	CopyAxis = "Copy axis"
	XMin     = "x min"
	XMax     = "x max"
	YMin     = "y min"
	YMax     = "y max"
)

// Cell is a single UI-bound scalar. Values are stored as text, the way an
// entry widget holds them; typed accessors parse on read.
type Cell struct {
	v       atomic.Value // string
	version atomic.Uint64
}

// Get returns the current text, "" if never set.
func (c *Cell) Get() string {
	s, _ := c.v.Load().(string)
	return s
}

// Set stores s and bumps the cell's version.
func (c *Cell) Set(s string) {
	c.v.Store(s)
	c.version.Add(1)
}

// Version increases on every Set. Observers compare versions to notice change.
func (c *Cell) Version() uint64 {
	return c.version.Load()
}

// Bool reports whether the cell holds a checked toggle value.
func (c *Cell) Bool() bool {
	switch strings.TrimSpace(c.Get()) {
	case "1", "true", "on":
		return true
	}
	return false
}

// SetBool stores a toggle as "1" or "0".
func (c *Cell) SetBool(b bool) {
	if b {
		c.Set("1")
		return
	}
	c.Set("0")
}

// Float parses the cell as a float64.
func (c *Cell) Float() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(c.Get()), 64)
}

// Cells maps stable names to cells. A name always resolves to the same Cell,
// created empty on first use.
type Cells struct {
	mu    sync.RWMutex
	cells map[string]*Cell
}

// NewCells returns an empty set.
func NewCells() *Cells {
	return &Cells{cells: make(map[string]*Cell)}
}

// Cell returns the cell for name, creating it if needed.
func (cs *Cells) Cell(name string) *Cell {
	cs.mu.RLock()
	c, ok := cs.cells[name]
	cs.mu.RUnlock()
	if ok {
		return c
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if c, ok := cs.cells[name]; ok {
		return c
	}
	c = &Cell{}
	cs.cells[name] = c
	return c
}

// Get is shorthand for Cell(name).Get().
func (cs *Cells) Get(name string) string { return cs.Cell(name).Get() }

// Set is shorthand for Cell(name).Set(s).
func (cs *Cells) Set(name, s string) { cs.Cell(name).Set(s) }

// Bool is shorthand for Cell(name).Bool().
func (cs *Cells) Bool(name string) bool { return cs.Cell(name).Bool() }

// SetBool is shorthand for Cell(name).SetBool(b).
func (cs *Cells) SetBool(name string, b bool) { cs.Cell(name).SetBool(b) }

// Toggle flips a boolean cell and returns the new value.
func (cs *Cells) Toggle(name string) bool {
	c := cs.Cell(name)
	b := !c.Bool()
	c.SetBool(b)
	return b
}
