package commit

import "sync/atomic"

// Interrupt is a cooperative stop request. Long-running loops poll it
// between atomic steps; a step already in flight always completes.
type Interrupt struct {
	requested atomic.Bool
}

// NewInterrupt returns a cleared flag
func NewInterrupt() *Interrupt {
	return &Interrupt{}
}

// Request asks running loops to stop at their next safe point. It reports
// whether a stop had already been requested.
func (i *Interrupt) Request() bool {
	return i.requested.Swap(true)
}

// Requested reports whether a stop has been requested
func (i *Interrupt) Requested() bool {
	return i != nil && i.requested.Load()
}

// Reset clears the flag
func (i *Interrupt) Reset() {
	i.requested.Store(false)
}
