package cards

import (
	"fmt"
	"strings"
)

// Rank is a card rank from Ace to King.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// Ranks lists every rank in deck order.
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

// Value returns the hard value of the rank: 1 for an Ace, 10 for court cards.
func (r Rank) Value() int {
	switch {
	case r >= Ten:
		return 10
	case r >= Ace:
		return int(r)
	default:
		return 0
	}
}

// String returns the wire symbol for the rank ("A", "2".."10", "J", "Q", "K").
func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	if r > Ace && r <= Ten {
		return fmt.Sprintf("%d", int(r))
	}
	return "?"
}

// Suit is one of the four French suits.
type Suit int

const (
	Spades Suit = iota
	Clubs
	Hearts
	Diamonds
)

// Suits lists every suit in deck order.
var Suits = []Suit{Spades, Clubs, Hearts, Diamonds}

// String returns the wire symbol for the suit.
func (s Suit) String() string {
	switch s {
	case Spades:
		return "S"
	case Clubs:
		return "C"
	case Hearts:
		return "H"
	case Diamonds:
		return "D"
	default:
		return "?"
	}
}

// Card is an immutable playing card.
type Card struct {
	Rank Rank
	Suit Suit
}

// Value returns the hard value of the card.
func (c Card) Value() int {
	return c.Rank.Value()
}

// IsAce reports whether the card is an Ace.
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// String encodes the card as rank symbol followed by suit symbol, e.g. "10H" or "AS".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// ParseCard decodes the wire form produced by Card.String.
func ParseCard(s string) (Card, error) {
	if len(s) < 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	rankSym, suitSym := s[:len(s)-1], s[len(s)-1:]

	var card Card
	found := false
	for _, r := range Ranks {
		if r.String() == strings.ToUpper(rankSym) {
			card.Rank = r
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid rank in card %q", s)
	}
	found = false
	for _, st := range Suits {
		if st.String() == strings.ToUpper(suitSym) {
			card.Suit = st
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}
	return card, nil
}

// MustParse is ParseCard for literals in tests and fixtures; it panics on bad input.
func MustParse(s string) Card {
	c, err := ParseCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

// NewDeck returns the 52 cards of a standard deck in rank-major order.
func NewDeck() []Card {
	deck := make([]Card, 0, len(Ranks)*len(Suits))
	for _, r := range Ranks {
		for _, s := range Suits {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}
