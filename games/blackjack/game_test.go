package blackjack

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/games"
)

// testGame builds a game in a known position. The shoe is drawn from the
// end, so the last card listed is the next one dealt.
func testGame(shoe Shoe, dealer, player Hand, wager int64) *Game {
	return &Game{
		shoe:          shoe,
		dealer:        dealer,
		player:        player,
		wager:         decimal.NewFromInt(wager),
		payout:        decimal.Zero,
		canDoubleDown: true,
	}
}

func mustEqual(t *testing.T, got, want decimal.Decimal, label string) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", label, got, want)
	}
}

func TestNewDealsInOrder(t *testing.T) {
	seed := int64(7)
	reference := NewShuffledShoe(rand.New(rand.NewSource(seed)))

	g, err := New(decimal.NewFromInt(100), rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Deal order is dealer, dealer, player, player, drawn from the end.
	wantDealer := Hand{reference[51], reference[50]}
	wantPlayer := Hand{reference[49], reference[48]}

	dealer, player := g.DealerHand(), g.PlayerHand()
	for i := range wantDealer {
		if dealer[i] != wantDealer[i] {
			t.Errorf("dealer card %d = %s, want %s", i, dealer[i], wantDealer[i])
		}
	}
	for i := range wantPlayer {
		if player[i] != wantPlayer[i] {
			t.Errorf("player card %d = %s, want %s", i, player[i], wantPlayer[i])
		}
	}

	if len(g.shoe) != 48 {
		t.Errorf("expected 48 cards remaining, got %d", len(g.shoe))
	}
	if g.Ended() {
		t.Error("a fresh game must be in play")
	}
	if !g.CanDoubleDown() {
		t.Error("a fresh game must allow double-down")
	}
	mustEqual(t, g.Wager(), decimal.NewFromInt(100), "wager")
	mustEqual(t, g.Payout(), decimal.Zero, "payout")
}

func TestStandNaturalPaysTriple(t *testing.T) {
	g := testGame(
		Shoe{},
		Hand{card(RankTen), card(RankSeven)},
		Hand{card(RankAce), card(RankKing)},
		50,
	)

	if err := g.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}
	if !g.Ended() {
		t.Fatal("game should be ended after stand")
	}
	if g.Outcome() != OutcomeWin {
		t.Fatalf("outcome = %s, want win", g.Outcome())
	}
	mustEqual(t, g.Payout(), decimal.NewFromInt(150), "natural payout")
}

func TestStandRegularWinPaysDouble(t *testing.T) {
	g := testGame(
		Shoe{},
		Hand{card(RankTen), card(RankSeven)},
		Hand{card(RankTen), card(RankNine)},
		50,
	)

	if err := g.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}
	mustEqual(t, g.Payout(), decimal.NewFromInt(100), "win payout")
}

func TestStandPushReturnsStake(t *testing.T) {
	g := testGame(
		Shoe{},
		Hand{card(RankTen), card(RankSeven)},
		Hand{card(RankTen), card(RankSeven)},
		80,
	)

	if err := g.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}
	if g.Outcome() != OutcomePush {
		t.Fatalf("outcome = %s, want push", g.Outcome())
	}
	mustEqual(t, g.Payout(), decimal.NewFromInt(80), "push payout")
}

func TestStandHouseWinPaysNothing(t *testing.T) {
	g := testGame(
		Shoe{},
		Hand{card(RankTen), card(RankNine)},
		Hand{card(RankTen), card(RankSix)},
		80,
	)

	if err := g.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}
	if g.Outcome() != OutcomeLose {
		t.Fatalf("outcome = %s, want lose", g.Outcome())
	}
	mustEqual(t, g.Payout(), decimal.Zero, "losing payout")
}

func TestDealerDrawsToSeventeen(t *testing.T) {
	// Dealer holds 12 and must draw the 2 then the 3 (drawn from the end)
	// to reach 17, then stop with the 9 still in the shoe.
	g := testGame(
		Shoe{card(RankNine), card(RankThree), card(RankTwo)},
		Hand{card(RankTen), card(RankTwo)},
		Hand{card(RankTen), card(RankNine)},
		10,
	)

	if err := g.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}

	dealer := g.DealerHand()
	if len(dealer) != 4 {
		t.Fatalf("dealer should have drawn twice, hand is %v", dealer)
	}
	if got := dealer.Value(); got != 17 {
		t.Errorf("dealer value = %d, want 17", got)
	}
	if len(g.shoe) != 1 {
		t.Errorf("dealer must stop at 17; %d cards left in shoe, want 1", len(g.shoe))
	}
}

func TestDealerBustIsPlayerWin(t *testing.T) {
	g := testGame(
		Shoe{card(RankTen)},
		Hand{card(RankTen), card(RankSix)},
		Hand{card(RankTen), card(RankEight)},
		25,
	)

	if err := g.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}
	if g.Outcome() != OutcomeWin {
		t.Fatalf("outcome = %s, want win on dealer bust", g.Outcome())
	}
	mustEqual(t, g.Payout(), decimal.NewFromInt(50), "payout on dealer bust")
}

func TestHitKeepsGameOpenBelowTwentyOne(t *testing.T) {
	g := testGame(
		Shoe{card(RankTen)},
		Hand{card(RankTen), card(RankSeven)},
		Hand{card(RankFive), card(RankFive)},
		10,
	)

	if err := g.Hit(); err != nil {
		t.Fatalf("Hit failed: %v", err)
	}
	if g.Ended() {
		t.Error("20 should stay in play")
	}
	if g.CanDoubleDown() {
		t.Error("hitting must forfeit double-down")
	}
	if len(g.PlayerHand()) != 3 {
		t.Errorf("player should hold 3 cards, has %d", len(g.PlayerHand()))
	}
}

func TestHitBustSettlesImmediately(t *testing.T) {
	g := testGame(
		Shoe{card(RankFive)},
		Hand{card(RankTen), card(RankSeven)},
		Hand{card(RankTen), card(RankNine)},
		10,
	)

	if err := g.Hit(); err != nil {
		t.Fatalf("Hit failed: %v", err)
	}
	if !g.Ended() {
		t.Fatal("busting must end the game")
	}
	if g.Outcome() != OutcomeLose {
		t.Errorf("outcome = %s, want lose", g.Outcome())
	}
	mustEqual(t, g.Payout(), decimal.Zero, "bust payout")
}

func TestHitTwentyOneSettlesImmediately(t *testing.T) {
	g := testGame(
		Shoe{card(RankTwo)},
		Hand{card(RankTen), card(RankNine)},
		Hand{card(RankTen), card(RankNine)},
		10,
	)

	if err := g.Hit(); err != nil {
		t.Fatalf("Hit failed: %v", err)
	}
	if !g.Ended() {
		t.Fatal("reaching 21 must end the game")
	}
	if g.Outcome() != OutcomeWin {
		t.Errorf("outcome = %s, want win", g.Outcome())
	}
	// Three-card 21 is not a natural: pays double, not triple.
	mustEqual(t, g.Payout(), decimal.NewFromInt(20), "three-card 21 payout")
}

func TestDoubleDownDoublesStakeAndClosesHand(t *testing.T) {
	g := testGame(
		Shoe{card(RankTwo)},
		Hand{card(RankTen), card(RankSeven)},
		Hand{card(RankThree), card(RankTwo)},
		30,
	)

	if err := g.DoubleDown(); err != nil {
		t.Fatalf("DoubleDown failed: %v", err)
	}

	mustEqual(t, g.Wager(), decimal.NewFromInt(60), "doubled wager")
	if len(g.PlayerHand()) != 3 {
		t.Errorf("exactly one card must be drawn, hand is %v", g.PlayerHand())
	}
	if !g.Ended() {
		t.Error("the hand must close after double-down even on a low total")
	}
	if g.CanDoubleDown() {
		t.Error("double-down eligibility must be cleared")
	}
	if err := g.Hit(); !errors.Is(err, games.ErrInvalidAction) {
		t.Errorf("hit after double-down: got %v, want ErrInvalidAction", err)
	}
}

func TestDoubleDownAfterHitRejected(t *testing.T) {
	g := testGame(
		Shoe{card(RankTwo), card(RankTwo)},
		Hand{card(RankTen), card(RankSeven)},
		Hand{card(RankFive), card(RankFive)},
		10,
	)

	if err := g.Hit(); err != nil {
		t.Fatalf("Hit failed: %v", err)
	}
	if err := g.DoubleDown(); !errors.Is(err, games.ErrInvalidAction) {
		t.Errorf("double-down after hit: got %v, want ErrInvalidAction", err)
	}
	mustEqual(t, g.Wager(), decimal.NewFromInt(10), "wager after rejected double-down")
}

func TestActionsOnEndedGameDoNotMutate(t *testing.T) {
	g := testGame(
		Shoe{card(RankTwo)},
		Hand{card(RankTen), card(RankSeven)},
		Hand{card(RankTen), card(RankNine)},
		10,
	)
	if err := g.Stand(); err != nil {
		t.Fatalf("Stand failed: %v", err)
	}

	before, err := g.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	for name, action := range map[string]func() error{
		"hit":        g.Hit,
		"stand":      g.Stand,
		"doubledown": g.DoubleDown,
	} {
		if err := action(); !errors.Is(err, games.ErrInvalidAction) {
			t.Errorf("%s on ended game: got %v, want ErrInvalidAction", name, err)
		}
	}

	after, err := g.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if before != after {
		t.Error("rejected actions must leave the state untouched")
	}
}

func TestGamePlayedFromFreshShoeSettles(t *testing.T) {
	// Play a full game with live draws; whatever the cards, the invariants
	// must hold once the game ends.
	g, err := New(decimal.NewFromInt(10), rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for !g.Ended() {
		if err := g.Hit(); err != nil {
			t.Fatalf("Hit failed: %v", err)
		}
	}
	if dealerValue := g.DealerHand().Value(); dealerValue < 17 {
		t.Errorf("dealer stopped below 17 at %d", dealerValue)
	}
	if g.Outcome() == "" {
		t.Error("a settled game must report an outcome")
	}
}
