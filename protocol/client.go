// Package protocol implements the hyphen-delimited text frames exchanged
// between the blackjack server and its players.
//
// A frame is one line: a direction marker ("C" client to server, "S" server
// to client), a command name, then command specific tokens, all joined by '-'.
package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"blackjack-server/tableerrors"
)

const (
	sep             = "-"
	clientDirection = "C"
	serverDirection = "S"
)

// ClientMessage is one of Bet, Play, Insurance or PlayAgain.
type ClientMessage interface {
	Frame() string
	clientMessage()
}

// Choice is a play decision for the current hand.
type Choice string

const (
	Hit    Choice = "H"
	Stand  Choice = "S"
	Double Choice = "D"
	Split  Choice = "SP"
)

func (c Choice) valid() bool {
	switch c {
	case Hit, Stand, Double, Split:
		return true
	}
	return false
}

// Bet places the wager for the round.
type Bet struct {
	Amount float64
}

// Play carries a hit/stand/double/split decision.
type Play struct {
	Choice Choice
}

// Insurance accepts or declines the insurance side bet.
type Insurance struct {
	Take bool
}

// PlayAgain answers the continuation vote at the end of a round.
type PlayAgain struct {
	Again bool
}

func (Bet) clientMessage()       {}
func (Play) clientMessage()      {}
func (Insurance) clientMessage() {}
func (PlayAgain) clientMessage() {}

func (m Bet) Frame() string {
	return join(clientDirection, "BET", strconv.FormatFloat(m.Amount, 'f', -1, 64))
}

func (m Play) Frame() string {
	return join(clientDirection, "PLAYING", string(m.Choice))
}

func (m Insurance) Frame() string {
	return join(clientDirection, "INSURANCE", yesNo(m.Take))
}

func (m PlayAgain) Frame() string {
	return join(clientDirection, "PLAYAGAIN", yesNo(m.Again))
}

// ParseClient decodes a client frame. Any frame that is short, carries the
// wrong direction marker, names an unknown command or has an invalid value
// yields an error wrapping tableerrors.ErrMalformedFrame.
func ParseClient(line string) (ClientMessage, error) {
	tokens := strings.Split(strings.TrimSpace(line), sep)
	if len(tokens) < 2 {
		return nil, malformed(line, "too few tokens")
	}
	if tokens[0] != clientDirection {
		return nil, malformed(line, "bad direction marker")
	}
	if len(tokens) != 3 {
		return nil, malformed(line, "expected exactly one argument")
	}
	arg := tokens[2]

	switch tokens[1] {
	case "BET":
		amount, err := strconv.ParseFloat(arg, 64)
		if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
			return nil, malformed(line, "bad amount")
		}
		return Bet{Amount: amount}, nil
	case "PLAYING":
		choice := Choice(arg)
		if !choice.valid() {
			return nil, malformed(line, "bad play choice")
		}
		return Play{Choice: choice}, nil
	case "INSURANCE":
		take, ok := parseYesNo(arg)
		if !ok {
			return nil, malformed(line, "bad insurance answer")
		}
		return Insurance{Take: take}, nil
	case "PLAYAGAIN":
		again, ok := parseYesNo(arg)
		if !ok {
			return nil, malformed(line, "bad play again answer")
		}
		return PlayAgain{Again: again}, nil
	default:
		return nil, malformed(line, "unknown command")
	}
}

func malformed(line, reason string) error {
	return fmt.Errorf("%w: %s: %q", tableerrors.ErrMalformedFrame, reason, line)
}

func parseYesNo(s string) (bool, bool) {
	switch s {
	case "Y":
		return true, true
	case "N":
		return false, true
	}
	return false, false
}

func yesNo(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

func join(tokens ...string) string {
	return strings.Join(tokens, sep)
}

func amount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
