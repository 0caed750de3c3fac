package behavior

import "checkpoint/internal/types"

// Window is a fixed-capacity FIFO of pointer samples. Pushing into a full
// window evicts the oldest sample.
type Window struct {
	buf   []types.PointerSample
	start int
	size  int
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]types.PointerSample, capacity)}
}

func (w *Window) Push(s types.PointerSample) {
	if w.size < len(w.buf) {
		w.buf[(w.start+w.size)%len(w.buf)] = s
		w.size++
		return
	}
	w.buf[w.start] = s
	w.start = (w.start + 1) % len(w.buf)
}

func (w *Window) Len() int { return w.size }

func (w *Window) Cap() int { return len(w.buf) }

// Last returns the n most recent samples, oldest first. It returns fewer
// when the window holds fewer.
func (w *Window) Last(n int) []types.PointerSample {
	if n > w.size {
		n = w.size
	}
	out := make([]types.PointerSample, n)
	for i := 0; i < n; i++ {
		out[i] = w.buf[(w.start+w.size-n+i)%len(w.buf)]
	}
	return out
}

// Samples returns the whole window in arrival order.
func (w *Window) Samples() []types.PointerSample {
	return w.Last(w.size)
}
