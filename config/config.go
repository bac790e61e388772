package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"blackjack-server/cards"
	"blackjack-server/game"
	"blackjack-server/lobby"
)

// maxReshufflePercent caps the reshuffle threshold as a share of the shoe.
const maxReshufflePercent = 20

// Config holds all configurable server parameters.
type Config struct {
	MinBet          float64 `json:"min_bet"`
	StartingBalance float64 `json:"starting_balance"`
	Decks           int     `json:"decks"`
	ReshuffleAt     int     `json:"reshuffle_at"`
	PlayersPerTable int     `json:"players_per_table"`

	TCPPort       int `json:"tcp_port"`
	HTTPPort      int `json:"http_port"`
	MaxLineLength int `json:"max_line_length"`

	// AuthBaseURL enables token checks on /ws when set.
	AuthBaseURL string `json:"auth_base_url"`
	// DatabaseURL enables round history when set.
	DatabaseURL string `json:"database_url"`
	LogLevel    string `json:"log_level"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		MinBet:          100,
		StartingBalance: 1000,
		Decks:           8,
		ReshuffleAt:     80,
		PlayersPerTable: 2,
		TCPPort:         8080,
		HTTPPort:        8081,
		MaxLineLength:   256,
		LogLevel:        "info",
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config.json", "tag", "config", "err", err)
		}
	}

	overrideFloat(&cfg.MinBet, "MIN_BET")
	overrideFloat(&cfg.StartingBalance, "STARTING_BALANCE")
	overrideInt(&cfg.Decks, "DECKS")
	overrideInt(&cfg.ReshuffleAt, "RESHUFFLE_AT")
	overrideInt(&cfg.PlayersPerTable, "PLAYERS_PER_TABLE")
	overrideInt(&cfg.TCPPort, "TCP_PORT")
	overrideInt(&cfg.HTTPPort, "HTTP_PORT")
	overrideInt(&cfg.MaxLineLength, "MAX_LINE_LENGTH")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")

	return cfg
}

// Validate rejects settings a table cannot run with and clamps the
// reshuffle threshold to at most 20% of the shoe.
func (c *Config) Validate() error {
	switch {
	case c.MinBet <= 0:
		return fmt.Errorf("min bet must be positive, got %v", c.MinBet)
	case c.StartingBalance < c.MinBet:
		return fmt.Errorf("starting balance %v is below the min bet %v", c.StartingBalance, c.MinBet)
	case c.Decks <= 0:
		return fmt.Errorf("decks must be positive, got %d", c.Decks)
	case c.PlayersPerTable <= 0:
		return fmt.Errorf("players per table must be positive, got %d", c.PlayersPerTable)
	case c.MaxLineLength <= 0:
		return fmt.Errorf("max line length must be positive, got %d", c.MaxLineLength)
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	limit := c.Decks * cards.DeckSize * maxReshufflePercent / 100
	if c.ReshuffleAt > limit {
		slog.Warn("clamping reshuffle threshold", "tag", "config", "from", c.ReshuffleAt, "to", limit)
		c.ReshuffleAt = limit
	}
	if c.ReshuffleAt < 0 {
		c.ReshuffleAt = 0
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// Table returns the rules handed to every table.
func (c *Config) Table() game.Config {
	return game.Config{
		MinBet:          c.MinBet,
		StartingBalance: c.StartingBalance,
		Decks:           c.Decks,
		ReshuffleAt:     c.ReshuffleAt,
	}
}

// Lobby returns the lobby settings.
func (c *Config) Lobby() lobby.Config {
	return lobby.Config{Table: c.Table(), PlayersPerTable: c.PlayersPerTable}
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			slog.Warn("invalid value", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*field = f
		} else {
			slog.Warn("invalid value", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
