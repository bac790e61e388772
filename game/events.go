package game

import (
	"blackjack-server/cards"
	"blackjack-server/protocol"
)

// event is an instruction from the table goroutine to a session goroutine.
// Events are the only way the table changes session state; each one that
// needs an answer carries the barrier the session reports to.
type event interface {
	isEvent()
}

// dealerView is what players may see of the dealer before the hole card is turned.
type dealerView struct {
	up      cards.Card
	visible int
}

type betPrompt struct {
	barrier *Barrier
	minBet  float64
	active  int
}

type dealtCards struct {
	cards []cards.Card
}

type insurancePrompt struct {
	barrier *Barrier
	dealer  dealerView
	active  int
}

type insuranceOutcome struct {
	dealerBlackjack bool
}

type turnPrompt struct {
	barrier *Barrier
	dealer  dealerView
	active  int
	last    bool
}

type settleRound struct {
	barrier *Barrier
	dealer  *Hand
}

type playAgainPrompt struct {
	barrier *Barrier
	active  int
}

// farewell sends the final frames and ends the session goroutine.
type farewell struct {
	messages []protocol.ServerMessage
}

func (betPrompt) isEvent()        {}
func (dealtCards) isEvent()       {}
func (insurancePrompt) isEvent()  {}
func (insuranceOutcome) isEvent() {}
func (turnPrompt) isEvent()       {}
func (settleRound) isEvent()      {}
func (playAgainPrompt) isEvent()  {}
func (farewell) isEvent()         {}
