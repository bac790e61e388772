// Package transport carries protocol lines between the table and remote
// players over raw TCP or WebSocket connections.
package transport

import (
	"sync"
	"time"

	"blackjack-server/tableerrors"
)

const (
	// Time allowed to write a line to the peer.
	writeWait = 10 * time.Second

	// Outbound lines queued per peer before sends start failing.
	sendQueue = 256

	// Inbound lines buffered per peer.
	recvQueue = 16
)

// outbox is a bounded send queue that never blocks the caller and never
// panics on a send after close.
type outbox struct {
	mu     sync.Mutex
	ch     chan string
	closed bool
}

func newOutbox() *outbox {
	return &outbox{ch: make(chan string, sendQueue)}
}

func (o *outbox) push(line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return tableerrors.ErrPeerClosed
	}
	select {
	case o.ch <- line:
		return nil
	default:
		return tableerrors.ErrSendBufferFull
	}
}

// close stops new sends. The writer still drains what is queued.
func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}
