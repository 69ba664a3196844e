package model

// LagWindow is a fixed-length FIFO of the most recent daily demands.
// Pushing into a full window evicts the oldest value.
type LagWindow struct {
	buf  []float64
	head int
	n    int
}

// NewLagWindow creates a window of the given size seeded with the trailing
// values of seed (oldest first).
func NewLagWindow(size int, seed []float64) *LagWindow {
	w := &LagWindow{buf: make([]float64, size)}
	if len(seed) > size {
		seed = seed[len(seed)-size:]
	}
	for _, v := range seed {
		w.Push(v)
	}
	return w
}

// Push appends v. When the window is full the oldest value is evicted and
// returned with ok=true.
func (w *LagWindow) Push(v float64) (evicted float64, ok bool) {
	size := len(w.buf)
	if size == 0 {
		return v, true
	}
	if w.n == size {
		evicted, ok = w.buf[w.head], true
		w.buf[w.head] = v
		w.head = (w.head + 1) % size
		return evicted, ok
	}
	w.buf[(w.head+w.n)%size] = v
	w.n++
	return 0, false
}

// Values returns a copy of the window contents, oldest first
func (w *LagWindow) Values() []float64 {
	out := make([]float64, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Len is the number of values held
func (w *LagWindow) Len() int { return w.n }

// Full reports whether the window holds Size values
func (w *LagWindow) Full() bool { return w.n == len(w.buf) }

// Size is the window capacity
func (w *LagWindow) Size() int { return len(w.buf) }
