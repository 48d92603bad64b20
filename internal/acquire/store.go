package acquire

import "github.com/daviddao/vitals_viewer/internal/sample"

// Store holds one append-only buffer per channel, indexed by the position the
// channel occupies in arriving tuples. It is owned by a single goroutine.
type Store struct {
	buffers [][]float64
}

// Append adds each value of t to the buffer at the same position, creating
// buffers for positions not seen before.
func (s *Store) Append(t sample.Tuple) {
	for i, v := range t {
		if i < len(s.buffers) {
			s.buffers[i] = append(s.buffers[i], v)
			continue
		}
		s.buffers = append(s.buffers, []float64{v})
	}
}

// Channels returns how many channel indices have been observed.
func (s *Store) Channels() int {
	return len(s.buffers)
}

// Len returns the buffer length of channel i, 0 if never seen.
func (s *Store) Len(i int) int {
	if i < 0 || i >= len(s.buffers) {
		return 0
	}
	return len(s.buffers[i])
}

// Window returns, for every channel visible reports true for, a copy of the
// last n values of its buffer (fewer if the buffer is shorter).
func (s *Store) Window(n int, visible func(int) bool) map[int][]float64 {
	view := make(map[int][]float64)
	for i, buf := range s.buffers {
		if !visible(i) {
			continue
		}
		tail := buf
		if len(tail) > n {
			tail = tail[len(tail)-n:]
		}
		view[i] = append([]float64(nil), tail...)
	}
	return view
}
