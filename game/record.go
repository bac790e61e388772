package game

import (
	"context"
	"time"

	"blackjack-server/cards"
)

// RoundRecorder persists settled rounds. Optional; may be nil.
type RoundRecorder interface {
	RecordRound(ctx context.Context, rec RoundRecord) error
}

// HandResult is one settled player hand.
type HandResult struct {
	Number  int
	Cards   []cards.Card
	Value   int
	Bet     float64
	Doubled bool
	Outcome Outcome
	Delta   float64
}

// SeatResult is everything one seat won or lost in a round.
type SeatResult struct {
	Seat         int
	PlayerID     string
	PlayerName   string
	Hands        []HandResult
	InsuranceNet float64
	Net          float64
	BalanceAfter float64
}

// RoundRecord describes a settled round for history.
type RoundRecord struct {
	ID          string
	TableID     string
	Number      int64
	PlayedAt    time.Time
	DealerCards []cards.Card
	DealerValue int
	Seats       []SeatResult
}
