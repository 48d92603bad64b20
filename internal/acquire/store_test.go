package acquire

import (
	"testing"

	"github.com/daviddao/vitals_viewer/internal/sample"
)

func TestStoreWindowLengths(t *testing.T) {
	all := func(int) bool { return true }
	tests := []struct {
		name   string
		values int
		n      int
		want   int
	}{
		{"shorter than window", 3, 200, 3},
		{"exactly window", 200, 200, 200},
		{"longer than window", 450, 200, 200},
		{"small window", 10, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Store
			for i := 0; i < tt.values; i++ {
				s.Append(sample.Tuple{float64(i)})
			}
			got := s.Window(tt.n, all)[0]
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}
			// The window is the buffer's tail.
			if got[len(got)-1] != float64(tt.values-1) {
				t.Errorf("last = %v, want %v", got[len(got)-1], tt.values-1)
			}
			if got[0] != float64(tt.values-tt.want) {
				t.Errorf("first = %v, want %v", got[0], tt.values-tt.want)
			}
		})
	}
}

func TestStoreLenUnknownChannel(t *testing.T) {
	var s Store
	if s.Len(0) != 0 || s.Len(-1) != 0 {
		t.Error("unknown channels have length 0")
	}
	s.Append(sample.Tuple{1, 2})
	if s.Channels() != 2 {
		t.Errorf("Channels = %d, want 2", s.Channels())
	}
	if s.Len(5) != 0 {
		t.Error("channel 5 was never seen")
	}
}

func TestStoreEmptyTupleIsNoop(t *testing.T) {
	var s Store
	s.Append(sample.Tuple{})
	if s.Channels() != 0 {
		t.Errorf("Channels = %d, want 0", s.Channels())
	}
}
