package game

// Outcome is how a single player hand settled against the dealer.
type Outcome int

const (
	OutcomeLose Outcome = iota
	OutcomePush
	OutcomeWin
	OutcomeBlackjack
)

// String returns the label stored in round history.
func (o Outcome) String() string {
	switch o {
	case OutcomeLose:
		return "lose"
	case OutcomePush:
		return "push"
	case OutcomeWin:
		return "win"
	case OutcomeBlackjack:
		return "blackjack"
	default:
		return "unknown"
	}
}

const blackjackPayout = 1.5

// Settle compares a finished player hand with the dealer's final hand and
// returns the outcome and the balance change.
//
// Order matters: a bust hand always loses, equal values push (so a blackjack
// against any dealer 21 pushes), a blackjack pays 3:2, then the higher value
// (or a bust dealer) wins.
func Settle(hand, dealer *Hand) (Outcome, float64) {
	bet := hand.Bet()
	switch {
	case hand.IsBust():
		return OutcomeLose, -bet
	case hand.Value() == dealer.Value():
		return OutcomePush, 0
	case hand.HasBlackjack():
		return OutcomeBlackjack, blackjackPayout * bet
	case dealer.IsBust() || hand.Value() > dealer.Value():
		return OutcomeWin, bet
	default:
		return OutcomeLose, -bet
	}
}
