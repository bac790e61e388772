package lobby

import (
	"sync/atomic"

	"blackjack-server/game"
)

// waiter watches a waiting peer for a hang-up. Frames sent before the table
// starts are discarded.
type waiter struct {
	peer   game.Peer
	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

func (l *Lobby) watch(p game.Peer) *waiter {
	w := &waiter{peer: p, stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case _, ok := <-p.Lines():
				if !ok {
					w.closed.Store(true)
					select {
					case l.gone <- w:
					case <-w.stop:
					}
					return
				}
				l.log.Debug("ignoring frame from waiting player", "player", p.Name())
			case <-w.stop:
				return
			}
		}
	}()
	return w
}

// release stops the watcher and waits for it to exit.
func (w *waiter) release() {
	close(w.stop)
	<-w.done
}
