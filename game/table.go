package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"blackjack-server/cards"
	"blackjack-server/protocol"
	"blackjack-server/tableerrors"
)

const (
	dealerStandsOn = 17
	initialCards   = 2
	recordTimeout  = 5 * time.Second
)

// Config holds the table rules fixed at construction.
type Config struct {
	MinBet          float64
	StartingBalance float64
	Decks           int
	ReshuffleAt     int
}

// Table coordinates one group of sessions through consecutive rounds. It
// owns the shoe, the dealer hand and the roster; sessions own their hands
// and balances.
type Table struct {
	ID string

	cfg      Config
	shoe     *cards.Shoe
	dealer   *Hand
	sessions []*Session
	recorder RoundRecorder
	base     *slog.Logger
	log      *slog.Logger

	round  atomic.Int64
	seated atomic.Int32

	mu    sync.Mutex
	fatal error

	writes sync.WaitGroup
}

// Option customises a Table.
type Option func(*Table)

// WithShoe replaces the randomly shuffled shoe.
func WithShoe(s *cards.Shoe) Option {
	return func(t *Table) { t.shoe = s }
}

// WithRecorder sets where settled rounds are written.
func WithRecorder(r RoundRecorder) Option {
	return func(t *Table) { t.recorder = r }
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Table) { t.base = l }
}

// NewTable creates a table with a fresh shoe and no players.
func NewTable(cfg Config, opts ...Option) *Table {
	t := &Table{
		ID:     uuid.NewString(),
		cfg:    cfg,
		dealer: NewHand(),
		base:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.shoe == nil {
		t.shoe = cards.NewShoe(cfg.Decks, nil)
	}
	t.log = t.base.With("tag", "table", "table", t.ID)
	return t
}

// Seat adds a player in the next roster position and starts its session.
// All players must be seated before Run.
func (t *Table) Seat(p Peer) *Session {
	s := newSession(len(t.sessions)+1, p, t.cfg.StartingBalance, t, t.base.With("tag", "session", "table", t.ID))
	t.sessions = append(t.sessions, s)
	t.seated.Store(int32(len(t.sessions)))
	go s.run()
	t.log.Info("player seated", "seat", s.seat, "player", p.Name())
	return s
}

// Round returns the number of the round in progress, or the last one played.
func (t *Table) Round() int64 { return t.round.Load() }

// Seated returns how many players are still at the table.
func (t *Table) Seated() int { return int(t.seated.Load()) }

// Run plays rounds until every player has left. On shutdown or a fatal
// error every remaining player is sent S-GAMEOVER and disconnected. A fatal
// error is returned wrapped in tableerrors.ErrTableAborted.
func (t *Table) Run(ctx context.Context) error {
	defer t.writes.Wait()

	for len(t.sessions) > 0 {
		if err := t.playRound(ctx); err != nil {
			t.leave(t.sessions, protocol.GameOver{})
			t.setRoster(nil)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				t.log.Info("table stopped", "round", t.Round())
				return nil
			}
			t.log.Error("table aborted", "round", t.Round(), "err", err)
			return fmt.Errorf("%w: %w", tableerrors.ErrTableAborted, err)
		}
	}
	t.log.Info("table empty", "rounds", t.Round())
	return nil
}

// DealCard draws from the shoe for the session whose turn it is. An empty
// shoe is recorded as fatal for the table.
func (t *Table) DealCard() (cards.Card, error) {
	c, err := t.shoe.Deal()
	if err != nil {
		t.fail(err)
		return cards.Card{}, err
	}
	return c, nil
}

func (t *Table) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fatal == nil {
		t.fatal = err
	}
}

func (t *Table) failure() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fatal
}

func (t *Table) setRoster(s []*Session) {
	t.sessions = s
	t.seated.Store(int32(len(s)))
}

// active counts the sessions that can still answer prompts.
func (t *Table) active() int {
	n := 0
	for _, s := range t.sessions {
		if !s.Disconnected() {
			n++
		}
	}
	return n
}

// ensureShoe rebuilds the shoe once it has run down to the threshold.
func (t *Table) ensureShoe() {
	if t.shoe.CardsLeft() <= t.cfg.ReshuffleAt {
		t.shoe.Rebuild()
		t.log.Info("shoe rebuilt", "cards", t.shoe.CardsLeft())
	}
}

// phase posts one event per session and waits for all of them to report.
func (t *Table) phase(ctx context.Context, ev func(*Barrier) event) error {
	b := NewBarrier(len(t.sessions))
	for _, s := range t.sessions {
		s.post(ev(b))
	}
	if err := b.Wait(ctx); err != nil {
		return err
	}
	return t.failure()
}

func (t *Table) playRound(ctx context.Context) error {
	number := t.round.Add(1)
	log := t.log.With("round", number)
	log.Debug("round starting", "players", len(t.sessions))

	t.ensureShoe()
	t.dealer.Clear()

	minBet, active := t.cfg.MinBet, t.active()
	err := t.phase(ctx, func(b *Barrier) event {
		return betPrompt{barrier: b, minBet: minBet, active: active}
	})
	if err != nil {
		return err
	}

	if err := t.dealInitial(); err != nil {
		return err
	}
	view := t.dealerView()

	dealerBlackjack := false
	if view.up.IsAce() {
		active := t.active()
		err := t.phase(ctx, func(b *Barrier) event {
			return insurancePrompt{barrier: b, dealer: view, active: active}
		})
		if err != nil {
			return err
		}
		dealerBlackjack = t.dealer.HasBlackjack()
		for _, s := range t.sessions {
			s.post(insuranceOutcome{dealerBlackjack: dealerBlackjack})
		}
		log.Debug("insurance resolved", "dealer_blackjack", dealerBlackjack)
	}

	if !dealerBlackjack {
		if err := t.playTurns(ctx, view); err != nil {
			return err
		}
		if err := t.playDealer(); err != nil {
			return err
		}
	}

	final := t.dealer.Clone()
	err = t.phase(ctx, func(b *Barrier) event {
		return settleRound{barrier: b, dealer: final}
	})
	if err != nil {
		return err
	}
	t.record(ctx, number, final)

	t.ensureShoe()
	return t.continuation(ctx)
}

// dealInitial deals one card to every player then the dealer, twice over.
func (t *Table) dealInitial() error {
	dealt := make([][]cards.Card, len(t.sessions))
	for range initialCards {
		for i := range t.sessions {
			c, err := t.DealCard()
			if err != nil {
				return err
			}
			dealt[i] = append(dealt[i], c)
		}
		c, err := t.DealCard()
		if err != nil {
			return err
		}
		t.dealer.AddCard(c)
	}
	for i, s := range t.sessions {
		s.post(dealtCards{cards: dealt[i]})
	}
	return nil
}

func (t *Table) dealerView() dealerView {
	up := t.dealer.Card(0)
	h := NewHand()
	h.AddCard(up)
	return dealerView{up: up, visible: h.Value()}
}

// playTurns gives each session its turn in roster order. Only the prompted
// session may act; the next one is prompted after it reports.
func (t *Table) playTurns(ctx context.Context, view dealerView) error {
	last := len(t.sessions) - 1
	for last > 0 && t.sessions[last].Disconnected() {
		last--
	}
	active := t.active()
	for i, s := range t.sessions {
		b := NewBarrier(1)
		s.post(turnPrompt{barrier: b, dealer: view, active: active, last: i == last})
		if err := b.Wait(ctx); err != nil {
			return err
		}
		if err := t.failure(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) playDealer() error {
	for t.dealer.Value() < dealerStandsOn && !t.dealer.HasBlackjack() {
		c, err := t.DealCard()
		if err != nil {
			return err
		}
		t.dealer.AddCard(c)
	}
	return nil
}

// continuation removes players who left or can no longer cover the minimum
// bet, then asks the rest whether they want another round.
func (t *Table) continuation(ctx context.Context) error {
	var eligible, gone, broke []*Session
	for _, s := range t.sessions {
		switch {
		case s.Disconnected():
			gone = append(gone, s)
		case s.Balance() < t.cfg.MinBet:
			broke = append(broke, s)
		default:
			eligible = append(eligible, s)
		}
	}
	t.leave(gone)
	t.leave(broke, protocol.LowBalance{}, protocol.GameOver{})
	t.setRoster(eligible)
	if len(eligible) == 0 {
		return nil
	}

	active := len(eligible)
	err := t.phase(ctx, func(b *Barrier) event {
		return playAgainPrompt{barrier: b, active: active}
	})
	if err != nil {
		return err
	}

	var stay, quit []*Session
	for _, s := range eligible {
		if s.quit || s.Disconnected() {
			quit = append(quit, s)
			continue
		}
		stay = append(stay, s)
	}
	t.leave(quit, protocol.GameOver{})
	t.setRoster(stay)
	return nil
}

// leave sends the final frames to each session, waits for its goroutine to
// finish and closes the connection.
func (t *Table) leave(sessions []*Session, final ...protocol.ServerMessage) {
	for _, s := range sessions {
		s.post(farewell{messages: final})
	}
	for _, s := range sessions {
		<-s.exited
		if err := s.peer.Close(); err != nil {
			t.log.Debug("closing peer", "seat", s.seat, "err", err)
		}
		t.log.Info("player left", "seat", s.seat, "player", s.Name(), "balance", s.balance)
	}
}

// record hands the settled round to the recorder without holding up play.
func (t *Table) record(ctx context.Context, number int64, dealer *Hand) {
	if t.recorder == nil {
		return
	}
	rec := RoundRecord{
		ID:          uuid.NewString(),
		TableID:     t.ID,
		Number:      number,
		PlayedAt:    time.Now().UTC(),
		DealerCards: dealer.Cards(),
		DealerValue: dealer.Value(),
	}
	for _, s := range t.sessions {
		// Players who dropped before settlement have nothing to record.
		if s.result.Seat == 0 {
			continue
		}
		rec.Seats = append(rec.Seats, s.result)
	}

	t.writes.Add(1)
	go func() {
		defer t.writes.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := t.recorder.RecordRound(wctx, rec); err != nil {
			t.log.Error("recording round", "round", number, "err", err)
		}
	}()
}
