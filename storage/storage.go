package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"blackjack-server/cards"
	"blackjack-server/game"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS round_history (
	id           UUID PRIMARY KEY,
	table_id     UUID NOT NULL,
	round_number BIGINT NOT NULL,
	played_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	dealer_cards TEXT NOT NULL,
	dealer_value INT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_round_history_played_at ON round_history(played_at DESC);
CREATE INDEX IF NOT EXISTS idx_round_history_table ON round_history(table_id, round_number);
CREATE TABLE IF NOT EXISTS round_seat (
	round_id      UUID NOT NULL REFERENCES round_history(id),
	seat          SMALLINT NOT NULL,
	player_id     TEXT NOT NULL,
	player_name   TEXT NOT NULL,
	insurance_net DOUBLE PRECISION NOT NULL DEFAULT 0,
	net           DOUBLE PRECISION NOT NULL,
	balance_after DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (round_id, seat)
);
CREATE TABLE IF NOT EXISTS round_hand (
	round_id    UUID NOT NULL REFERENCES round_history(id),
	seat        SMALLINT NOT NULL,
	hand_number SMALLINT NOT NULL,
	cards       TEXT NOT NULL,
	value       INT NOT NULL,
	bet         DOUBLE PRECISION NOT NULL,
	doubled     BOOLEAN NOT NULL DEFAULT false,
	outcome     TEXT NOT NULL,
	delta       DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (round_id, seat, hand_number)
);
`

// Store persists and retrieves round history.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the history tables exist.
// If databaseURL is empty, NewStore returns (nil, nil) and no persistence occurs.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// RecordRound writes a settled round, its seats and their hands in one
// transaction.
func (s *Store) RecordRound(ctx context.Context, rec game.RoundRecord) error {
	if s == nil || s.pool == nil {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO round_history (id, table_id, round_number, played_at, dealer_cards, dealer_value)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.TableID, rec.Number, rec.PlayedAt, cardsText(rec.DealerCards), rec.DealerValue)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}

	batch := &pgx.Batch{}
	for _, seat := range rec.Seats {
		batch.Queue(
			`INSERT INTO round_seat (round_id, seat, player_id, player_name, insurance_net, net, balance_after)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, seat.Seat, seat.PlayerID, seat.PlayerName, seat.InsuranceNet, seat.Net, seat.BalanceAfter)
		for _, h := range seat.Hands {
			batch.Queue(
				`INSERT INTO round_hand (round_id, seat, hand_number, cards, value, bet, doubled, outcome, delta)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				rec.ID, seat.Seat, h.Number, cardsText(h.Cards), h.Value, h.Bet, h.Doubled, h.Outcome.String(), h.Delta)
		}
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert seats: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// RoundSummary is one round as returned by the history API.
type RoundSummary struct {
	ID          string        `json:"id"`
	TableID     string        `json:"table_id"`
	Number      int64         `json:"round"`
	PlayedAt    time.Time     `json:"played_at"`
	DealerCards []string      `json:"dealer_cards"`
	DealerValue int           `json:"dealer_value"`
	Seats       []SeatSummary `json:"seats"`
}

// SeatSummary is one player's result in a round.
type SeatSummary struct {
	Seat         int     `json:"seat"`
	PlayerName   string  `json:"player_name"`
	Net          float64 `json:"net"`
	InsuranceNet float64 `json:"insurance_net"`
	BalanceAfter float64 `json:"balance_after"`
}

type roundRow struct {
	ID          string    `db:"id"`
	TableID     string    `db:"table_id"`
	Number      int64     `db:"round_number"`
	PlayedAt    time.Time `db:"played_at"`
	DealerCards string    `db:"dealer_cards"`
	DealerValue int       `db:"dealer_value"`
}

type seatRow struct {
	RoundID      string  `db:"round_id"`
	Seat         int     `db:"seat"`
	PlayerName   string  `db:"player_name"`
	Net          float64 `db:"net"`
	InsuranceNet float64 `db:"insurance_net"`
	BalanceAfter float64 `db:"balance_after"`
}

// ListRecentRounds returns the most recent rounds, newest first.
func (s *Store) ListRecentRounds(ctx context.Context, limit int) ([]RoundSummary, error) {
	if s == nil || s.pool == nil {
		return []RoundSummary{}, nil
	}
	limit = clampLimit(limit)

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, table_id::text, round_number, played_at, dealer_cards, dealer_value
		 FROM round_history ORDER BY played_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	rounds, err := pgx.CollectRows(rows, pgx.RowToStructByName[roundRow])
	if err != nil {
		return nil, err
	}
	if len(rounds) == 0 {
		return []RoundSummary{}, nil
	}

	ids := make([]string, len(rounds))
	for i, r := range rounds {
		ids[i] = r.ID
	}
	rows, err = s.pool.Query(ctx,
		`SELECT round_id::text, seat, player_name, net, insurance_net, balance_after
		 FROM round_seat WHERE round_id::text = ANY($1) ORDER BY round_id, seat`, ids)
	if err != nil {
		return nil, err
	}
	seats, err := pgx.CollectRows(rows, pgx.RowToStructByName[seatRow])
	if err != nil {
		return nil, err
	}
	return assemble(rounds, seats), nil
}

// assemble attaches seat rows to their rounds, keeping round order.
func assemble(rounds []roundRow, seats []seatRow) []RoundSummary {
	byRound := make(map[string][]SeatSummary, len(rounds))
	for _, s := range seats {
		byRound[s.RoundID] = append(byRound[s.RoundID], SeatSummary{
			Seat:         s.Seat,
			PlayerName:   s.PlayerName,
			Net:          s.Net,
			InsuranceNet: s.InsuranceNet,
			BalanceAfter: s.BalanceAfter,
		})
	}
	out := make([]RoundSummary, 0, len(rounds))
	for _, r := range rounds {
		ss := byRound[r.ID]
		if ss == nil {
			ss = []SeatSummary{}
		}
		out = append(out, RoundSummary{
			ID:          r.ID,
			TableID:     r.TableID,
			Number:      r.Number,
			PlayedAt:    r.PlayedAt,
			DealerCards: splitCards(r.DealerCards),
			DealerValue: r.DealerValue,
			Seats:       ss,
		})
	}
	return out
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

// cardsText stores cards in their wire encoding, space separated.
func cardsText(cs []cards.Card) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func splitCards(s string) []string {
	fields := strings.Fields(s)
	if fields == nil {
		return []string{}
	}
	return fields
}
