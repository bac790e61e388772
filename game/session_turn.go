package game

import (
	"blackjack-server/cards"
	"blackjack-server/protocol"
)

// The turn state machine below runs on the session goroutine while the table
// is blocked on this session's turn barrier, which is what makes dealing from
// the shared shoe safe. A send failure only marks the session disconnected;
// the barrier is reported once the handler returns, never between deals.

func (s *Session) startTurn(e turnPrompt) {
	s.round.dealer = e.dealer
	s.round.active = e.active
	s.round.last = e.last
	s.round.current = 0
	if !s.await(e.barrier) {
		return
	}
	s.phase = PhasePlaying
	s.send(protocol.Advance{Stage: protocol.StagePlaying})
	s.presentHand()
}

func (s *Session) currentHand() *Hand {
	return s.round.hands[s.round.current]
}

// committedExcept sums the bets on every hand other than the current one.
func (s *Session) committedExcept() float64 {
	total := 0.0
	for i, h := range s.round.hands {
		if i != s.round.current {
			total += h.Bet()
		}
	}
	return total
}

func (s *Session) presentHand() {
	s.sendTable(s.round.current)
	s.presentOptions()
}

// presentOptions either finishes a hand that cannot take more cards or sends
// the moves available for it.
func (s *Session) presentOptions() {
	if s.disconnected.Load() {
		return
	}
	h := s.currentHand()
	switch {
	case h.HasBlackjack():
		s.send(protocol.PlayingStage{Kind: protocol.PlayerBlackjack})
		s.finishHand()
	case h.IsBust():
		s.send(protocol.PlayingStage{Kind: protocol.PlayerBust})
		s.finishHand()
	case h.Value() == blackjackValue:
		s.send(protocol.PlayingStage{Kind: protocol.PlayerMaxValue})
		s.finishHand()
	case h.Doubled():
		s.finishHand()
	default:
		other := s.committedExcept()
		r := &s.round
		r.canDouble = h.CanDouble(s.balance, other)
		r.canSplit = len(r.hands) == 1 && h.CanSplit(s.balance, other)
		r.awaitingChoice = true
		s.send(protocol.PlayingStage{Kind: protocol.PlayOptions(r.canDouble, r.canSplit)})
	}
}

// play applies a decision to the current hand. Moves that were not offered
// are dropped like any other noise.
func (s *Session) play(choice protocol.Choice) {
	r := &s.round
	switch choice {
	case protocol.Hit:
		r.awaitingChoice = false
		c, ok := s.deal()
		if !ok {
			return
		}
		h := s.currentHand()
		h.AddCard(c)
		s.sendHand(r.current)
		s.presentOptions()

	case protocol.Stand:
		r.awaitingChoice = false
		s.finishHand()

	case protocol.Double:
		if !r.canDouble {
			s.log.Debug("dropping double that was not offered")
			return
		}
		r.awaitingChoice = false
		c, ok := s.deal()
		if !ok {
			return
		}
		h := s.currentHand()
		h.DoubleDown(c)
		s.sendHand(r.current)
		s.send(protocol.PlayingStage{Kind: protocol.DoubledDown, Bet: h.Bet()})
		s.finishHand()

	case protocol.Split:
		if !r.canSplit {
			s.log.Debug("dropping split that was not offered")
			return
		}
		r.awaitingChoice = false
		s.split()
	}
}

func (s *Session) split() {
	first, ok := s.deal()
	if !ok {
		return
	}
	second, ok := s.deal()
	if !ok {
		return
	}

	r := &s.round
	h := s.currentHand()
	nh, err := h.Split()
	if err != nil {
		s.log.Error("splitting hand", "err", err)
		s.finishHand()
		return
	}
	h.AddCard(first)
	nh.AddCard(second)

	at := r.current + 1
	r.hands = append(r.hands, nil)
	copy(r.hands[at+1:], r.hands[at:])
	r.hands[at] = nh

	s.send(protocol.PlayingStage{Kind: protocol.SplitHand})
	s.sendHand(r.current)
	s.sendHand(at)
	s.presentOptions()
}

// finishHand moves on to the next unplayed hand, or ends the turn.
func (s *Session) finishHand() {
	r := &s.round
	r.awaitingChoice = false
	if r.current < len(r.hands)-1 {
		r.current++
		s.presentHand()
		return
	}
	s.enterWaiting(r.active > 1 && !r.last)
	s.report()
}

// deal draws one card from the table's shoe. A failure is fatal for the
// table; the session releases the turn so the table can see it.
func (s *Session) deal() (cards.Card, bool) {
	c, err := s.source.DealCard()
	if err != nil {
		s.log.Error("dealing card", "err", err)
		s.phase = PhaseWaitingOthers
		s.report()
		return cards.Card{}, false
	}
	return c, true
}
