package protocol

import (
	"errors"
	"testing"

	"blackjack-server/cards"
	"blackjack-server/tableerrors"
)

func TestParseClientCommands(t *testing.T) {
	cases := []struct {
		line string
		want ClientMessage
	}{
		{"C-BET-100", Bet{Amount: 100}},
		{"C-BET-12.5", Bet{Amount: 12.5}},
		{"C-PLAYING-H", Play{Choice: Hit}},
		{"C-PLAYING-S", Play{Choice: Stand}},
		{"C-PLAYING-D", Play{Choice: Double}},
		{"C-PLAYING-SP", Play{Choice: Split}},
		{"C-INSURANCE-Y", Insurance{Take: true}},
		{"C-INSURANCE-N", Insurance{Take: false}},
		{"C-PLAYAGAIN-Y", PlayAgain{Again: true}},
		{"C-PLAYAGAIN-N\r\n", PlayAgain{Again: false}},
	}
	for _, tc := range cases {
		got, err := ParseClient(tc.line)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.line, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: expected %#v, got %#v", tc.line, tc.want, got)
		}
	}
}

func TestParseClientMalformed(t *testing.T) {
	for _, line := range []string{
		"",
		"C",
		"BET",
		"S-BET-100",
		"C-BET",
		"C-BET-abc",
		"C-BET--5",
		"C-BET-NaN",
		"C-PLAYING-X",
		"C-INSURANCE-maybe",
		"C-FOLD-Y",
		"C-PLAYAGAIN-Y-extra",
	} {
		_, err := ParseClient(line)
		if !errors.Is(err, tableerrors.ErrMalformedFrame) {
			t.Errorf("%q: expected ErrMalformedFrame, got %v", line, err)
		}
	}
}

func TestClientFramesParseBack(t *testing.T) {
	for _, msg := range []ClientMessage{
		Bet{Amount: 250},
		Play{Choice: Split},
		Insurance{Take: true},
		PlayAgain{Again: false},
	} {
		got, err := ParseClient(msg.Frame())
		if err != nil {
			t.Fatalf("%q: %v", msg.Frame(), err)
		}
		if got != msg {
			t.Errorf("expected %#v, got %#v", msg, got)
		}
	}
}

func TestServerFrames(t *testing.T) {
	ace := cards.MustParse("AS")
	ten := cards.MustParse("10H")
	cases := []struct {
		msg  ServerMessage
		want string
	}{
		{BettingStage{MinBet: 100, Balance: 1000}, "S-ADVANCE-BETTINGSTAGE-100.00-1000.00"},
		{Advance{Stage: StagePlaying}, "S-ADVANCE-PLAYINGSTAGE"},
		{Advance{Stage: StageWaitingOthers}, "S-ADVANCE-WAITINGOTHERS"},
		{PlayerHand{Number: 1, Value: 21, Cards: []cards.Card{ace, ten}}, "S-PLAYERHAND-1-21-AS-10H"},
		{DealerHand{Value: 11, Cards: []cards.Card{ace}, Hidden: true}, "S-DEALERHAND-11-AS-XX"},
		{DealerHand{Value: 21, Cards: []cards.Card{ace, ten}}, "S-DEALERHAND-21-AS-10H"},
		{PlayingStage{Kind: PlayOptions(true, false)}, "S-PLAYINGSTAGE-HITSTANDDOUBLE"},
		{PlayingStage{Kind: PlayOptions(true, true)}, "S-PLAYINGSTAGE-HITSTANDDOUBLESPLIT"},
		{PlayingStage{Kind: PlayOptions(false, true)}, "S-PLAYINGSTAGE-HITSTANDSPLIT"},
		{PlayingStage{Kind: DoubledDown, Bet: 200}, "S-PLAYINGSTAGE-DD-200.00"},
		{InsuranceResult{Kind: InsLose, Amount: 50}, "S-INSURANCE-LOSEINSURANCE-50.00"},
		{InsuranceResult{Kind: InsDealerBlackjack}, "S-INSURANCE-DEALERBJ"},
		{Payout{Kind: PayHandWin, Hand: 2}, "S-PAYOUTSTAGE-HANDWIN-2"},
		{Payout{Kind: PayRoundLose, Balance: 900, Amount: 100}, "S-PAYOUTSTAGE-ROUNDLOSE-900.00-100.00"},
		{Payout{Kind: PayDealerBust}, "S-PAYOUTSTAGE-DEALERBUST"},
		{LowBalance{}, "S-LOWBALANCE"},
		{GameOver{}, "S-GAMEOVER"},
	}
	for _, tc := range cases {
		if got := tc.msg.Frame(); got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, got)
		}
	}
}
