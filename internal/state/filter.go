package state

import "sync"

// Filter maps channel index to visibility. Indices with no entry are hidden.
type Filter struct {
	mu      sync.RWMutex
	visible map[int]bool
}

// NewFilter returns an empty filter; every channel starts hidden.
func NewFilter() *Filter {
	return &Filter{visible: make(map[int]bool)}
}

// Set creates or overwrites the entry for channel i.
func (f *Filter) Set(i int, visible bool) {
	f.mu.Lock()
	f.visible[i] = visible
	f.mu.Unlock()
}

// Visible reports whether channel i has an entry set to true.
func (f *Filter) Visible(i int) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.visible[i]
}

// Snapshot returns a copy of the current entries.
func (f *Filter) Snapshot() map[int]bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[int]bool, len(f.visible))
	for i, v := range f.visible {
		out[i] = v
	}
	return out
}

// Refresh writes one entry per name, keyed by the name's position. The
// position, not the name, is what maps a toggle onto an arriving channel.
func (f *Filter) Refresh(names []string, toggled func(name string) bool) {
	for i, name := range names {
		f.Set(i, toggled(name))
	}
}
