package storage

import (
	"context"

	"blackjack-server/game"
)

// HistoryStore abstracts persistence for round history.
// Implementations can be swapped for testing (mocks) or different backends.
type HistoryStore interface {
	// Read
	ListRecentRounds(ctx context.Context, limit int) ([]RoundSummary, error)

	// Write
	RecordRound(ctx context.Context, rec game.RoundRecord) error

	// Lifecycle
	Close()
}

// Ensure *Store implements HistoryStore and game.RoundRecorder at compile time.
var (
	_ HistoryStore       = (*Store)(nil)
	_ game.RoundRecorder = (*Store)(nil)
)
