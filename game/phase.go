package game

// Phase is where a session is in the round.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseWaitingBet
	PhasePlaying
	PhaseOfferInsurance
	PhaseWaitingOthers
	PhasePlayAgain
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseWaitingBet:
		return "waiting_bet"
	case PhasePlaying:
		return "playing"
	case PhaseOfferInsurance:
		return "offer_insurance"
	case PhaseWaitingOthers:
		return "waiting_others"
	case PhasePlayAgain:
		return "play_again"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}
