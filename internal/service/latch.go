package service

import "sync/atomic"

// Latch is a single-use gate. The first Fire wins; every later Fire is a no-op
// that reports false. The zero value is ready to use.
type Latch struct {
	fired atomic.Bool
}

// Fire closes the latch and reports whether this call was the one that closed it.
func (l *Latch) Fire() bool {
	return l.fired.CompareAndSwap(false, true)
}

// Fired reports whether the latch has been closed.
func (l *Latch) Fired() bool {
	return l.fired.Load()
}
