package game

import (
	"log/slog"
	"sync/atomic"

	"blackjack-server/cards"
	"blackjack-server/protocol"
)

// insuranceCover is how many times the hand bet a balance must hold before
// insurance is offered.
const insuranceCover = 1.5

// cardSource deals cards to a session during its own turn.
type cardSource interface {
	DealCard() (cards.Card, error)
}

// roundState holds everything a session tracks for a single round. It is
// replaced wholesale when a new round starts.
type roundState struct {
	hands   []*Hand
	current int
	active  int
	last    bool
	dealer  dealerView

	askedInsurance bool
	tookInsurance  bool
	insuranceNet   float64

	awaitingChoice bool
	canDouble      bool
	canSplit       bool
}

func newRoundState() roundState {
	return roundState{hands: []*Hand{NewHand()}}
}

// Session is one seated player. It runs its own goroutine, reading frames
// from its peer and events from the table, and is the only writer of its
// hands and balance. The table reads Balance, quit and result only after the
// barrier of the phase that last wrote them has released.
type Session struct {
	seat   int
	peer   Peer
	source cardSource
	log    *slog.Logger

	events chan event
	exited chan struct{}

	disconnected atomic.Bool
	// handling is set while an event or frame handler runs on the session
	// goroutine. A disconnect noticed then is reported when the handler ends.
	handling bool

	phase   Phase
	balance float64
	quit    bool
	pending *Barrier
	round   roundState
	result  SeatResult
}

func newSession(seat int, peer Peer, balance float64, source cardSource, log *slog.Logger) *Session {
	return &Session{
		seat:    seat,
		peer:    peer,
		source:  source,
		log:     log.With("seat", seat, "player", peer.Name()),
		events:  make(chan event, 16),
		exited:  make(chan struct{}),
		phase:   PhaseNotStarted,
		balance: balance,
		round:   newRoundState(),
	}
}

// Seat returns the 1-based seat number in roster order.
func (s *Session) Seat() int { return s.seat }

// Name returns the player's display name.
func (s *Session) Name() string { return s.peer.Name() }

// Balance returns the player's balance. Only meaningful to the table after
// the settle barrier of the round has released.
func (s *Session) Balance() float64 { return s.balance }

// Disconnected reports whether the peer has gone away.
func (s *Session) Disconnected() bool { return s.disconnected.Load() }

// post hands an event to the session goroutine.
func (s *Session) post(ev event) {
	s.events <- ev
}

// run is the session goroutine. It ends only after a farewell event.
func (s *Session) run() {
	defer close(s.exited)

	lines := s.peer.Lines()
	for {
		select {
		case ev := <-s.events:
			var exit bool
			s.dispatch(func() { exit = s.handleEvent(ev) })
			if exit {
				return
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				s.disconnect("end of stream")
				continue
			}
			s.dispatch(func() { s.handleLine(line) })
		}
	}
}

// dispatch runs one handler. If the peer went away meanwhile, the pending
// barrier is answered only after the handler has written all of its state.
func (s *Session) dispatch(handle func()) {
	s.handling = true
	handle()
	s.handling = false
	if s.disconnected.Load() {
		s.report()
	}
}

// disconnect marks the session gone and releases whatever barrier it was
// holding, so the table never waits on a player that cannot answer.
func (s *Session) disconnect(reason string) {
	if s.disconnected.Swap(true) {
		return
	}
	s.log.Info("player disconnected", "reason", reason, "phase", s.phase.String())
	if !s.handling {
		s.report()
	}
}

// report answers the barrier of the current phase, at most once.
func (s *Session) report() {
	if s.pending == nil {
		return
	}
	s.pending.Report()
	s.pending = nil
}

// await records the barrier for a new phase. A disconnected session answers
// it straight away and the caller must not prompt the peer.
func (s *Session) await(b *Barrier) bool {
	s.pending = b
	if s.disconnected.Load() {
		s.report()
		return false
	}
	return true
}

func (s *Session) send(msg protocol.ServerMessage) {
	if s.disconnected.Load() {
		return
	}
	if err := s.peer.Send(msg.Frame()); err != nil {
		s.disconnect(err.Error())
	}
}

func (s *Session) enterWaiting(announce bool) {
	s.phase = PhaseWaitingOthers
	if announce {
		s.send(protocol.Advance{Stage: protocol.StageWaitingOthers})
	}
}

func (s *Session) handleEvent(ev event) (exit bool) {
	switch e := ev.(type) {
	case betPrompt:
		s.promptBet(e)
	case dealtCards:
		for _, c := range e.cards {
			s.round.hands[0].AddCard(c)
		}
	case insurancePrompt:
		s.promptInsurance(e)
	case insuranceOutcome:
		s.resolveInsurance(e.dealerBlackjack)
	case turnPrompt:
		s.startTurn(e)
	case settleRound:
		s.settle(e)
	case playAgainPrompt:
		if !s.await(e.barrier) {
			return false
		}
		s.round.active = e.active
		s.phase = PhasePlayAgain
		s.send(protocol.Advance{Stage: protocol.StagePlayAgain})
	case farewell:
		for _, m := range e.messages {
			s.send(m)
		}
		s.phase = PhaseGameOver
		return true
	}
	return false
}

// handleLine dispatches one inbound frame. Malformed frames and commands
// that do not belong to the current phase are dropped without a reply.
func (s *Session) handleLine(line string) {
	if s.disconnected.Load() {
		return
	}
	msg, err := protocol.ParseClient(line)
	if err != nil {
		s.log.Debug("dropping frame", "err", err)
		return
	}

	switch m := msg.(type) {
	case protocol.Bet:
		if s.phase == PhaseWaitingBet {
			s.placeBet(m.Amount)
			return
		}
	case protocol.Play:
		if s.phase == PhasePlaying && s.round.awaitingChoice {
			s.play(m.Choice)
			return
		}
	case protocol.Insurance:
		if s.phase == PhaseOfferInsurance {
			s.answerInsurance(m.Take)
			return
		}
	case protocol.PlayAgain:
		if s.phase == PhasePlayAgain {
			s.answerPlayAgain(m.Again)
			return
		}
	}
	s.log.Debug("dropping out of phase frame", "frame", line, "phase", s.phase.String())
}

func (s *Session) promptBet(e betPrompt) {
	s.round = newRoundState()
	s.round.active = e.active
	s.result = SeatResult{}
	if !s.await(e.barrier) {
		return
	}
	s.phase = PhaseWaitingBet
	s.send(protocol.BettingStage{MinBet: e.minBet, Balance: s.balance})
}

func (s *Session) placeBet(amount float64) {
	if amount <= 0 || amount > s.balance {
		s.log.Debug("dropping unaffordable bet", "amount", amount, "balance", s.balance)
		return
	}
	s.round.hands[0].SetBet(amount)
	s.enterWaiting(s.round.active > 1)
	s.report()
}

func (s *Session) promptInsurance(e insurancePrompt) {
	s.round.dealer = e.dealer
	s.round.active = e.active
	if !s.await(e.barrier) {
		return
	}
	hand := s.round.hands[0]
	s.sendTable(0)

	if s.balance < insuranceCover*hand.Bet() {
		s.send(protocol.PlayingStage{Kind: protocol.TooPoorInsurance})
		s.enterWaiting(s.round.active > 1)
		s.report()
		return
	}
	s.round.askedInsurance = true
	s.phase = PhaseOfferInsurance
	s.send(protocol.PlayingStage{Kind: protocol.OfferInsurance})
}

func (s *Session) answerInsurance(take bool) {
	s.round.tookInsurance = take
	s.enterWaiting(true)
	s.report()
}

// resolveInsurance settles the side bet once the dealer's hole card is known.
// The stake is half the hand bet and pays 2:1.
func (s *Session) resolveInsurance(dealerBlackjack bool) {
	stake := s.round.hands[0].Bet() / 2
	r := &s.round

	if dealerBlackjack {
		s.send(protocol.InsuranceResult{Kind: protocol.InsDealerBlackjack})
		switch {
		case r.tookInsurance:
			r.insuranceNet = 2 * stake
			s.balance += r.insuranceNet
			s.send(protocol.InsuranceResult{Kind: protocol.InsWin})
		case r.askedInsurance:
			s.send(protocol.InsuranceResult{Kind: protocol.InsBlackjackNoPayout})
		}
		return
	}

	s.send(protocol.InsuranceResult{Kind: protocol.InsNoDealerBlackjack})
	switch {
	case r.tookInsurance:
		r.insuranceNet = -stake
		s.balance -= stake
		s.send(protocol.InsuranceResult{Kind: protocol.InsLose, Amount: stake})
	case r.askedInsurance:
		s.send(protocol.InsuranceResult{Kind: protocol.InsNoBlackjackNoPay})
	}
}

// settle pays out every hand against the dealer's final hand and reports
// the round figure, insurance included.
func (s *Session) settle(e settleRound) {
	if !s.await(e.barrier) {
		return
	}
	dealer := e.dealer
	s.send(protocol.DealerHand{Value: dealer.Value(), Cards: dealer.Cards()})
	switch {
	case dealer.HasBlackjack():
		s.send(protocol.Payout{Kind: protocol.PayDealerBlackjack})
	case dealer.IsBust():
		s.send(protocol.Payout{Kind: protocol.PayDealerBust})
	}

	result := SeatResult{
		Seat:         s.seat,
		PlayerID:     s.peer.ID(),
		PlayerName:   s.peer.Name(),
		InsuranceNet: s.round.insuranceNet,
	}
	total := 0.0
	for i, hand := range s.round.hands {
		number := i + 1
		s.sendHand(i)
		outcome, delta := Settle(hand, dealer)
		s.balance += delta
		total += delta

		kind := protocol.PayHandLose
		switch outcome {
		case OutcomePush:
			kind = protocol.PayHandPush
		case OutcomeWin, OutcomeBlackjack:
			kind = protocol.PayHandWin
		}
		s.send(protocol.Payout{Kind: kind, Hand: number})

		result.Hands = append(result.Hands, HandResult{
			Number:  number,
			Cards:   hand.Cards(),
			Value:   hand.Value(),
			Bet:     hand.Bet(),
			Doubled: hand.Doubled(),
			Outcome: outcome,
			Delta:   delta,
		})
	}
	total += s.round.insuranceNet

	if total < 0 {
		s.send(protocol.Payout{Kind: protocol.PayRoundLose, Balance: s.balance, Amount: -total})
	} else {
		s.send(protocol.Payout{Kind: protocol.PayRoundWin, Balance: s.balance, Amount: total})
	}

	result.Net = total
	result.BalanceAfter = s.balance
	s.result = result
	s.phase = PhaseWaitingOthers
	s.report()
}

func (s *Session) answerPlayAgain(again bool) {
	if !again {
		s.quit = true
		s.phase = PhaseGameOver
	} else {
		s.phase = PhaseNotStarted
		if s.round.active > 1 {
			s.send(protocol.Advance{Stage: protocol.StageRoundOver})
		}
	}
	s.report()
}

// sendTable shows the dealer's up-card and the given hand.
func (s *Session) sendTable(hand int) {
	d := s.round.dealer
	s.send(protocol.DealerHand{Value: d.visible, Cards: []cards.Card{d.up}, Hidden: true})
	s.sendHand(hand)
}

func (s *Session) sendHand(i int) {
	h := s.round.hands[i]
	s.send(protocol.PlayerHand{Number: i + 1, Value: h.Value(), Cards: h.Cards()})
}
