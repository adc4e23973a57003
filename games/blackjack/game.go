// Package blackjack implements the single-player blackjack engine: a
// shuffled shoe, soft/hard hand evaluation and the player/dealer turn
// sequence. The engine is a pure state machine with two states, in play and
// ended; once ended no further draws occur and the payout is final.
package blackjack

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/games"
)

var (
	two   = decimal.NewFromInt(2)
	three = decimal.NewFromInt(3)
)

// Game is one blackjack game between a player and the dealer.
//
// The caller is responsible for validating that the wager is affordable
// before starting or doubling down, and for crediting the payout through
// its own ledger once the game has ended.
type Game struct {
	shoe          Shoe
	dealer        Hand
	player        Hand
	wager         decimal.Decimal
	payout        decimal.Decimal
	ended         bool
	canDoubleDown bool
}

// New starts a game: shuffles a fresh shoe and deals two cards to the
// dealer, then two to the player. The wager must already be validated as
// positive and affordable by the caller.
func New(wager decimal.Decimal, rng *rand.Rand) (*Game, error) {
	g := &Game{
		shoe:          NewShuffledShoe(rng),
		wager:         wager,
		payout:        decimal.Zero,
		canDoubleDown: true,
	}
	for i := 0; i < 2; i++ {
		if err := g.dealTo(&g.dealer); err != nil {
			return nil, err
		}
	}
	for i := 0; i < 2; i++ {
		if err := g.dealTo(&g.player); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Game) dealTo(hand *Hand) error {
	card, err := g.shoe.Draw()
	if err != nil {
		return err
	}
	*hand = append(*hand, card)
	return nil
}

// Type implements games.Game.
func (g *Game) Type() string { return games.TypeBlackjack }

// Ended reports whether the game has been settled.
func (g *Game) Ended() bool { return g.ended }

// CanDoubleDown reports whether doubling down is still available. It is
// cleared permanently by the first player action after the deal.
func (g *Game) CanDoubleDown() bool { return g.canDoubleDown }

// Wager returns the current total stake, doubled if the player doubled down.
func (g *Game) Wager() decimal.Decimal { return g.wager }

// Payout returns the settled payout. Zero until the game ends.
func (g *Game) Payout() decimal.Decimal { return g.payout }

// PlayerHand returns a copy of the player's hand.
func (g *Game) PlayerHand() Hand { return append(Hand(nil), g.player...) }

// DealerHand returns a copy of the dealer's hand.
func (g *Game) DealerHand() Hand { return append(Hand(nil), g.dealer...) }

// DealerUpcard returns the dealer's visible first card.
func (g *Game) DealerUpcard() Card { return g.dealer[0] }

// Hit draws one card into the player's hand. The hand settles immediately
// when it reaches or busts past 21; otherwise the game stays in play.
// Hitting forfeits the double-down option.
func (g *Game) Hit() error {
	if g.ended {
		return games.ErrInvalidAction
	}
	card, err := g.shoe.Draw()
	if err != nil {
		return err
	}
	g.player = append(g.player, card)
	g.canDoubleDown = false
	if g.player.Value() >= 21 {
		return g.settle()
	}
	return nil
}

// DoubleDown doubles the stake, draws exactly one card and closes the hand:
// the game settles regardless of the resulting total. Only available as the
// first player action after the deal.
func (g *Game) DoubleDown() error {
	if g.ended || !g.canDoubleDown {
		return games.ErrInvalidAction
	}
	card, err := g.shoe.Draw()
	if err != nil {
		return err
	}
	g.canDoubleDown = false
	g.wager = g.wager.Add(g.wager)
	g.player = append(g.player, card)
	return g.settle()
}

// Stand ends the player's turn and settles the game.
func (g *Game) Stand() error {
	if g.ended {
		return games.ErrInvalidAction
	}
	return g.settle()
}

// Outcome labels for a settled game.
const (
	OutcomeWin  = games.OutcomeWin
	OutcomeLose = games.OutcomeLose
	OutcomePush = games.OutcomePush
)

// Outcome returns the settled result from the player's perspective, or ""
// while the game is still in play.
func (g *Game) Outcome() string {
	if !g.ended {
		return ""
	}
	playerValue, dealerValue := g.player.Value(), g.dealer.Value()
	switch {
	case playerValue > 21:
		return OutcomeLose
	case dealerValue > 21:
		return OutcomeWin
	case playerValue > dealerValue:
		return OutcomeWin
	case playerValue < dealerValue:
		return OutcomeLose
	default:
		return OutcomePush
	}
}

// settle runs the dealer to 17 or better and fixes the payout: a natural
// two-card 21 pays 3x the stake, any other win 2x, a push returns the stake
// and a loss pays nothing.
func (g *Game) settle() error {
	g.ended = true
	for g.dealer.Value() < 17 {
		if err := g.dealTo(&g.dealer); err != nil {
			return err
		}
	}
	switch g.Outcome() {
	case OutcomeWin:
		if g.player.IsNatural() {
			g.payout = g.wager.Mul(three)
		} else {
			g.payout = g.wager.Mul(two)
		}
	case OutcomePush:
		g.payout = g.wager
	}
	return nil
}
