// Package lobby gathers connecting players into a group and runs one table
// for them at a time.
package lobby

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"blackjack-server/game"
	"blackjack-server/protocol"
	"blackjack-server/tableerrors"
)

const queueSize = 100

// Status values reported by Status.
const (
	StateWaiting = "waiting"
	StatePlaying = "playing"
)

// Config sets the rules for every table the lobby starts.
type Config struct {
	Table           game.Config
	PlayersPerTable int
}

// Status is a point-in-time view of the lobby.
type Status struct {
	State   string `json:"state"`
	Waiting int    `json:"waiting"`
	Seated  int    `json:"seated"`
	Round   int64  `json:"round"`
	TableID string `json:"tableId,omitempty"`
}

// Lobby holds players until a table can be filled, then runs that table
// until its players leave. Only one table runs at a time.
type Lobby struct {
	cfg   Config
	opts  []game.Option
	queue chan game.Peer
	gone  chan *waiter
	log   *slog.Logger

	playing atomic.Bool
	waiting atomic.Int32
	table   atomic.Pointer[game.Table]
}

// New creates a lobby. opts are applied to every table it starts.
func New(cfg Config, opts ...game.Option) *Lobby {
	return &Lobby{
		cfg:   cfg,
		opts:  opts,
		queue: make(chan game.Peer, queueSize),
		gone:  make(chan *waiter),
		log:   slog.Default().With("tag", "lobby"),
	}
}

// Enqueue adds a connected player to the waiting group. While a table is
// running the player is sent S-GAMEOVER and disconnected.
func (l *Lobby) Enqueue(p game.Peer) error {
	if l.playing.Load() {
		l.refuse(p)
		return tableerrors.ErrTableInProgress
	}
	select {
	case l.queue <- p:
		return nil
	default:
		l.refuse(p)
		return tableerrors.ErrTableInProgress
	}
}

// Status reports what the lobby is doing.
func (l *Lobby) Status() Status {
	st := Status{State: StateWaiting, Waiting: int(l.waiting.Load())}
	if t := l.table.Load(); t != nil {
		st.Round = t.Round()
		st.TableID = t.ID
		if l.playing.Load() {
			st.State = StatePlaying
			st.Seated = t.Seated()
		}
	}
	return st
}

// Run gathers groups and plays their tables until ctx is cancelled.
func (l *Lobby) Run(ctx context.Context) error {
	for {
		peers := l.gather(ctx)
		if peers == nil {
			return nil
		}

		table := game.NewTable(l.cfg.Table, l.opts...)
		for _, p := range peers {
			table.Seat(p)
		}
		l.table.Store(table)
		l.playing.Store(true)
		l.refuseQueued()
		l.log.Info("table started", "table", table.ID, "players", len(peers))

		err := table.Run(ctx)
		l.playing.Store(false)
		switch {
		case errors.Is(err, tableerrors.ErrTableAborted):
			l.log.Error("table aborted", "table", table.ID, "err", err)
		case err != nil:
			return err
		default:
			l.log.Info("table finished", "table", table.ID, "rounds", table.Round())
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// gather blocks until PlayersPerTable live players are waiting. It returns
// nil when ctx is cancelled, after dismissing everyone still waiting.
func (l *Lobby) gather(ctx context.Context) []game.Peer {
	var waiting []*waiter
	defer l.waiting.Store(0)

	for {
		for len(waiting) < l.cfg.PlayersPerTable {
			select {
			case <-ctx.Done():
				for _, w := range waiting {
					w.release()
					l.refuse(w.peer)
				}
				return nil
			case p := <-l.queue:
				waiting = append(waiting, l.watch(p))
				l.log.Info("player waiting", "player", p.Name(), "waiting", len(waiting))
			case w := <-l.gone:
				waiting = remove(waiting, w)
				w.peer.Close()
				l.log.Info("waiting player left", "player", w.peer.Name(), "waiting", len(waiting))
			}
			l.waiting.Store(int32(len(waiting)))
		}

		// Stop watching before the table takes over the peers' lines. A peer
		// that hung up in the meantime is dropped and gathering resumes.
		var live []*waiter
		for _, w := range waiting {
			w.release()
			if w.closed.Load() {
				w.peer.Close()
				continue
			}
			live = append(live, w)
		}
		waiting = live
		l.waiting.Store(int32(len(waiting)))
		if len(waiting) < l.cfg.PlayersPerTable {
			continue
		}

		peers := make([]game.Peer, len(waiting))
		for i, w := range waiting {
			peers[i] = w.peer
		}
		return peers
	}
}

// refuseQueued turns away anyone who queued while the group was completing.
func (l *Lobby) refuseQueued() {
	for {
		select {
		case p := <-l.queue:
			l.refuse(p)
		default:
			return
		}
	}
}

func (l *Lobby) refuse(p game.Peer) {
	l.log.Info("refusing player", "player", p.Name(), "err", tableerrors.ErrTableInProgress)
	go func() {
		p.Send(protocol.GameOver{}.Frame())
		p.Close()
	}()
}

func remove(ws []*waiter, w *waiter) []*waiter {
	for i := range ws {
		if ws[i] == w {
			return append(ws[:i], ws[i+1:]...)
		}
	}
	return ws
}
