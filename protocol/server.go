package protocol

import (
	"strconv"

	"blackjack-server/cards"
)

// HiddenCard marks the dealer's face-down card in the initial reveal.
const HiddenCard = "XX"

// ServerMessage is any frame the server sends to a player.
type ServerMessage interface {
	Frame() string
}

// Stage names used by Advance frames.
type Stage string

const (
	StagePlaying       Stage = "PLAYINGSTAGE"
	StageRoundOver     Stage = "ROUNDOVER"
	StageWaitingOthers Stage = "WAITINGOTHERS"
	StagePlayAgain     Stage = "PLAYAGAIN"
)

// Advance moves the client to another stage.
type Advance struct {
	Stage Stage
}

func (m Advance) Frame() string {
	return join(serverDirection, "ADVANCE", string(m.Stage))
}

// BettingStage asks the client for a bet.
type BettingStage struct {
	MinBet  float64
	Balance float64
}

func (m BettingStage) Frame() string {
	return join(serverDirection, "ADVANCE", "BETTINGSTAGE", amount(m.MinBet), amount(m.Balance))
}

// PlayerHand shows one of the player's hands. Number is 1-based.
type PlayerHand struct {
	Number int
	Value  int
	Cards  []cards.Card
}

func (m PlayerHand) Frame() string {
	tokens := []string{serverDirection, "PLAYERHAND", strconv.Itoa(m.Number), strconv.Itoa(m.Value)}
	for _, c := range m.Cards {
		tokens = append(tokens, c.String())
	}
	return join(tokens...)
}

// DealerHand shows the dealer's cards. With Hidden set, a HiddenCard marker
// follows the visible cards.
type DealerHand struct {
	Value  int
	Cards  []cards.Card
	Hidden bool
}

func (m DealerHand) Frame() string {
	tokens := []string{serverDirection, "DEALERHAND", strconv.Itoa(m.Value)}
	for _, c := range m.Cards {
		tokens = append(tokens, c.String())
	}
	if m.Hidden {
		tokens = append(tokens, HiddenCard)
	}
	return join(tokens...)
}

// PlayingKind is the payload of a PLAYINGSTAGE frame.
type PlayingKind string

const (
	OptHitStand            PlayingKind = "HITSTAND"
	OptHitStandDouble      PlayingKind = "HITSTANDDOUBLE"
	OptHitStandSplit       PlayingKind = "HITSTANDSPLIT"
	OptHitStandDoubleSplit PlayingKind = "HITSTANDDOUBLESPLIT"
	OfferInsurance         PlayingKind = "OFFERINSURANCE"
	TooPoorInsurance       PlayingKind = "TOOPOORINSURANCE"
	PlayerBlackjack        PlayingKind = "PLAYERBJ"
	PlayerBust             PlayingKind = "PLAYERBUST"
	PlayerMaxValue         PlayingKind = "PLAYERMAXVAL"
	DoubledDown            PlayingKind = "DD"
	SplitHand              PlayingKind = "SPLITHAND"
)

// PlayOptions returns the option kind matching the allowed extra moves.
func PlayOptions(canDouble, canSplit bool) PlayingKind {
	switch {
	case canDouble && canSplit:
		return OptHitStandDoubleSplit
	case canDouble:
		return OptHitStandDouble
	case canSplit:
		return OptHitStandSplit
	default:
		return OptHitStand
	}
}

// PlayingStage is a turn prompt or a turn notice. Bet is only sent with DoubledDown.
type PlayingStage struct {
	Kind PlayingKind
	Bet  float64
}

func (m PlayingStage) Frame() string {
	if m.Kind == DoubledDown {
		return join(serverDirection, "PLAYINGSTAGE", string(m.Kind), amount(m.Bet))
	}
	return join(serverDirection, "PLAYINGSTAGE", string(m.Kind))
}

// InsuranceKind is the payload of an INSURANCE frame.
type InsuranceKind string

const (
	InsDealerBlackjack   InsuranceKind = "DEALERBJ"
	InsNoDealerBlackjack InsuranceKind = "NODEALERBJ"
	InsWin               InsuranceKind = "WININSURANCE"
	InsLose              InsuranceKind = "LOSEINSURANCE"
	InsBlackjackNoPayout InsuranceKind = "BJNOPAYOUT"
	InsNoBlackjackNoPay  InsuranceKind = "NOBJNOPAYOUT"
)

// InsuranceResult reports how the insurance side bet resolved. Amount is
// only sent with InsLose.
type InsuranceResult struct {
	Kind   InsuranceKind
	Amount float64
}

func (m InsuranceResult) Frame() string {
	if m.Kind == InsLose {
		return join(serverDirection, "INSURANCE", string(m.Kind), amount(m.Amount))
	}
	return join(serverDirection, "INSURANCE", string(m.Kind))
}

// PayoutKind is the payload of a PAYOUTSTAGE frame.
type PayoutKind string

const (
	PayDealerBlackjack PayoutKind = "DEALERBJ"
	PayDealerBust      PayoutKind = "DEALERBUST"
	PayHandPush        PayoutKind = "HANDPUSH"
	PayHandWin         PayoutKind = "HANDWIN"
	PayHandLose        PayoutKind = "HANDLOSE"
	PayRoundWin        PayoutKind = "ROUNDWIN"
	PayRoundLose       PayoutKind = "ROUNDLOSE"
)

// Payout reports settlement. Hand is used by the HAND* kinds, Balance and
// Amount by the ROUND* kinds.
type Payout struct {
	Kind    PayoutKind
	Hand    int
	Balance float64
	Amount  float64
}

func (m Payout) Frame() string {
	switch m.Kind {
	case PayHandPush, PayHandWin, PayHandLose:
		return join(serverDirection, "PAYOUTSTAGE", string(m.Kind), strconv.Itoa(m.Hand))
	case PayRoundWin, PayRoundLose:
		return join(serverDirection, "PAYOUTSTAGE", string(m.Kind), amount(m.Balance), amount(m.Amount))
	default:
		return join(serverDirection, "PAYOUTSTAGE", string(m.Kind))
	}
}

// LowBalance tells the player their balance is below the table minimum.
type LowBalance struct{}

func (LowBalance) Frame() string { return join(serverDirection, "LOWBALANCE") }

// GameOver ends the session; the connection is closed after it.
type GameOver struct{}

func (GameOver) Frame() string { return join(serverDirection, "GAMEOVER") }
