package game

import (
	"context"
	"sync"
)

// Barrier releases waiters once a fixed number of participants have
// reported. Each phase of a round gets a fresh Barrier sized at phase start.
// Reports beyond the count are ignored, so a forced report from a
// disconnecting session can never push the count negative.
type Barrier struct {
	mu        sync.Mutex
	remaining int
	released  chan struct{}
}

// NewBarrier returns a barrier expecting n reports. A barrier with n <= 0 is
// already released.
func NewBarrier(n int) *Barrier {
	b := &Barrier{remaining: n, released: make(chan struct{})}
	if n <= 0 {
		b.remaining = 0
		close(b.released)
	}
	return b
}

// Report counts one participant as done.
func (b *Barrier) Report() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining == 0 {
		return
	}
	b.remaining--
	if b.remaining == 0 {
		close(b.released)
	}
}

// Remaining returns how many reports are still outstanding.
func (b *Barrier) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Released is closed once every participant has reported.
func (b *Barrier) Released() <-chan struct{} {
	return b.released
}

// Wait blocks until the barrier is released or ctx is done.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.released:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
