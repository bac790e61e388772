package game

import (
	"fmt"

	"blackjack-server/cards"
)

const (
	blackjackValue = 21
	// Ace promotion only happens while the hand is worth less than this.
	promoteBelow = 12
	acePromotion = 10
)

// Hand is an ordered set of cards with a running blackjack value.
// At most one Ace is counted as 11 ("soft"); it is demoted to 1 the moment
// counting it as 11 would bust the hand.
type Hand struct {
	cards   []cards.Card
	value   int
	soft    bool
	bet     float64
	doubled bool
	split   bool
}

// NewHand returns an empty hand with no bet.
func NewHand() *Hand {
	return &Hand{}
}

// AddCard appends c and updates the value.
func (h *Hand) AddCard(c cards.Card) {
	before := h.value
	h.cards = append(h.cards, c)
	h.value += c.Value()

	if c.IsAce() && !h.soft && before < promoteBelow {
		h.soft = true
		h.value += acePromotion
	}
	if h.value > blackjackValue && h.soft {
		h.soft = false
		h.value -= acePromotion
	}
}

// RemoveCard takes the i-th card out of the hand and returns it. The value is
// recomputed by replaying the remaining cards.
func (h *Hand) RemoveCard(i int) (cards.Card, error) {
	if i < 0 || i >= len(h.cards) {
		return cards.Card{}, fmt.Errorf("remove card %d from hand of %d", i, len(h.cards))
	}
	removed := h.cards[i]
	rest := make([]cards.Card, 0, len(h.cards)-1)
	rest = append(rest, h.cards[:i]...)
	rest = append(rest, h.cards[i+1:]...)

	h.cards, h.value, h.soft = nil, 0, false
	for _, c := range rest {
		h.AddCard(c)
	}
	return removed, nil
}

// Clear empties the hand and resets bet and flags.
func (h *Hand) Clear() {
	*h = Hand{}
}

// Clone returns an independent copy of the hand.
func (h *Hand) Clone() *Hand {
	cp := *h
	cp.cards = append([]cards.Card(nil), h.cards...)
	return &cp
}

func (h *Hand) Value() int { return h.value }

// IsSoft reports whether an Ace is currently counted as 11.
func (h *Hand) IsSoft() bool { return h.soft }

func (h *Hand) Len() int { return len(h.cards) }

func (h *Hand) Card(i int) cards.Card { return h.cards[i] }

// Cards returns a copy of the cards in the hand.
func (h *Hand) Cards() []cards.Card {
	return append([]cards.Card(nil), h.cards...)
}

// HasBlackjack is true for exactly two cards worth 21.
func (h *Hand) HasBlackjack() bool {
	return len(h.cards) == 2 && h.value == blackjackValue
}

func (h *Hand) IsBust() bool {
	return h.value > blackjackValue
}

func (h *Hand) Bet() float64 { return h.bet }

func (h *Hand) SetBet(amount float64) { h.bet = amount }

func (h *Hand) Doubled() bool { return h.doubled }

// FromSplit reports whether the hand was created by, or reduced by, a split.
func (h *Hand) FromSplit() bool { return h.split }

// DoubleDown adds the final card and doubles the bet.
func (h *Hand) DoubleDown(c cards.Card) {
	h.AddCard(c)
	h.doubled = true
	h.bet *= 2
}

// CanDouble reports whether the hand may be doubled: two cards worth 9 to 11,
// not already doubled, and a balance that covers twice every bet the player
// has committed (this hand plus otherCommitted).
func (h *Hand) CanDouble(balance, otherCommitted float64) bool {
	if len(h.cards) != 2 || h.doubled {
		return false
	}
	if h.value < 9 || h.value > 11 {
		return false
	}
	return balance >= 2*(h.bet+otherCommitted)
}

// CanSplit reports whether the hand may be split: two cards of equal rank,
// not already part of a split, and a balance covering the committed bets
// plus a second bet of the same size.
func (h *Hand) CanSplit(balance, otherCommitted float64) bool {
	if len(h.cards) != 2 || h.split {
		return false
	}
	if h.cards[0].Rank != h.cards[1].Rank {
		return false
	}
	return balance >= otherCommitted+2*h.bet
}

// Split moves the second card into a new hand carrying the same bet. Both
// hands are marked so neither can be split again.
func (h *Hand) Split() (*Hand, error) {
	if len(h.cards) != 2 {
		return nil, fmt.Errorf("split hand of %d cards", len(h.cards))
	}
	second, err := h.RemoveCard(1)
	if err != nil {
		return nil, err
	}
	nh := NewHand()
	nh.AddCard(second)
	nh.bet = h.bet
	nh.split = true
	h.split = true
	return nh, nil
}
