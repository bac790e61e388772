package cards

import (
	"math/rand"

	"blackjack-server/tableerrors"
)

// DeckSize is the number of cards in one standard deck.
const DeckSize = 52

// shufflePasses is how many times the merged shoe is shuffled after the
// individual decks have been shuffled and combined.
const shufflePasses = 3

// Shoe is the pool of cards a table deals from. Cards leave from the front.
// A Shoe is not safe for concurrent use; the table serialises access to it.
type Shoe struct {
	cards []Card
	build func() []Card
}

// NewShoe builds a shoe from decks standard decks and shuffles it.
// rng may be nil, in which case the global math/rand source is used.
func NewShoe(decks int, rng *rand.Rand) *Shoe {
	s := &Shoe{build: func() []Card { return shuffledDecks(decks, rng) }}
	s.Rebuild()
	return s
}

// NewStackedShoe returns a shoe that deals exactly the given cards in order.
// Rebuild restores the same order, which makes rounds reproducible in tests.
func NewStackedShoe(stack ...Card) *Shoe {
	s := &Shoe{build: func() []Card {
		cp := make([]Card, len(stack))
		copy(cp, stack)
		return cp
	}}
	s.Rebuild()
	return s
}

// Rebuild discards the remaining cards and refills the shoe.
func (s *Shoe) Rebuild() {
	s.cards = s.build()
}

// Deal removes and returns the front card.
func (s *Shoe) Deal() (Card, error) {
	if len(s.cards) == 0 {
		return Card{}, tableerrors.ErrEmptyShoe
	}
	c := s.cards[0]
	s.cards = s.cards[1:]
	return c, nil
}

// CardsLeft returns the number of cards still in the shoe.
func (s *Shoe) CardsLeft() int {
	return len(s.cards)
}

func shuffledDecks(decks int, rng *rand.Rand) []Card {
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}

	all := make([]Card, 0, decks*DeckSize)
	for i := 0; i < decks; i++ {
		deck := NewDeck()
		shuffle(len(deck), func(a, b int) {
			deck[a], deck[b] = deck[b], deck[a]
		})
		all = append(all, deck...)
	}
	for pass := 0; pass < shufflePasses; pass++ {
		shuffle(len(all), func(a, b int) {
			all[a], all[b] = all[b], all[a]
		})
	}
	return all
}
