// Package roulette implements the European roulette engine: an additive bet
// book of outside (category) and inside (single number) bets, and a one-shot
// resolution that draws a winning number and settles every bet against it.
package roulette

import (
	"math/rand"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/games"
)

// tableSize is the number of pockets on a European wheel, 0 through 36.
const tableSize = 37

// straightUpMultiplier is the inside bet payout, 35:1.
var straightUpMultiplier = decimal.NewFromInt(35)

// Hit records one winning bet and its payout contribution. Bet holds the
// category name for outside bets or the number for inside bets.
type Hit struct {
	Bet    string
	Payout decimal.Decimal
}

// Game is one roulette round: bets accumulate until Spin resolves them.
// After resolution the round is terminal; the caller discards the state and
// credits the payout through its own ledger.
type Game struct {
	outside  map[OutsideBet]decimal.Decimal
	inside   map[int]decimal.Decimal
	placed   bool
	wagered  decimal.Decimal
	payout   decimal.Decimal
	winning  int
	resolved bool
	hits     []Hit
}

// New creates an empty bet book with every outside category at zero.
func New() *Game {
	outside := make(map[OutsideBet]decimal.Decimal, len(outsideBets))
	for _, bet := range outsideBets {
		outside[bet] = decimal.Zero
	}
	return &Game{
		outside: outside,
		inside:  make(map[int]decimal.Decimal),
		wagered: decimal.Zero,
		payout:  decimal.Zero,
	}
}

// Type implements games.Game.
func (g *Game) Type() string { return games.TypeRoulette }

// Ended reports whether the round has been resolved.
func (g *Game) Ended() bool { return g.resolved }

// HasBets reports whether any bet has ever been placed.
func (g *Game) HasBets() bool { return g.placed }

// Wagered returns the cumulative total of all placed bets.
func (g *Game) Wagered() decimal.Decimal { return g.wagered }

// Payout returns the total winnings. Zero until the round is resolved.
func (g *Game) Payout() decimal.Decimal { return g.payout }

// WinningNumber returns the drawn number; valid only once resolved.
func (g *Game) WinningNumber() (int, bool) { return g.winning, g.resolved }

// Hits returns the winning bets of a resolved round, in table order.
func (g *Game) Hits() []Hit { return append([]Hit(nil), g.hits...) }

// OutsideAmount returns the running total wagered on a category.
func (g *Game) OutsideAmount(bet OutsideBet) decimal.Decimal { return g.outside[bet] }

// InsideAmount returns the running total wagered on a number.
func (g *Game) InsideAmount(number int) decimal.Decimal {
	if amount, ok := g.inside[number]; ok {
		return amount
	}
	return decimal.Zero
}

// AddOutsideBet adds to the running total on a category. Repeated bets on
// the same category accumulate. The caller validates affordability.
func (g *Game) AddOutsideBet(bet OutsideBet, amount decimal.Decimal) error {
	if g.resolved {
		return games.ErrInvalidAction
	}
	if !bet.Valid() {
		return games.ErrInvalidBet
	}
	g.outside[bet] = g.outside[bet].Add(amount)
	g.book(amount)
	return nil
}

// AddInsideBet adds to the running total on a single number 0 through 36.
func (g *Game) AddInsideBet(number int, amount decimal.Decimal) error {
	if g.resolved {
		return games.ErrInvalidAction
	}
	if number < 0 || number >= tableSize {
		return games.ErrInvalidBet
	}
	g.inside[number] = g.InsideAmount(number).Add(amount)
	g.book(amount)
	return nil
}

func (g *Game) book(amount decimal.Decimal) {
	g.placed = true
	g.wagered = g.wagered.Add(amount)
}

// Spin draws one winning number uniformly from the wheel and settles the
// bet book against it. An empty book fails with games.ErrNoBetsPlaced
// before any draw is consumed; spinning a resolved round fails with
// games.ErrInvalidAction.
func (g *Game) Spin(rng *rand.Rand) error {
	if g.resolved {
		return games.ErrInvalidAction
	}
	if !g.placed {
		return games.ErrNoBetsPlaced
	}
	g.resolve(rng.Intn(tableSize))
	return nil
}

// resolve settles the book against the winning number. A winning bet pays
// its stake back plus the stake times its multiplier.
func (g *Game) resolve(winning int) {
	g.winning = winning
	g.resolved = true
	one := decimal.NewFromInt(1)
	for _, bet := range outsideBets {
		amount := g.outside[bet]
		if amount.IsZero() || !bet.Matches(winning) {
			continue
		}
		won := amount.Mul(one.Add(bet.Multiplier()))
		g.hits = append(g.hits, Hit{Bet: string(bet), Payout: won})
		g.payout = g.payout.Add(won)
	}
	if amount, ok := g.inside[winning]; ok && !amount.IsZero() {
		won := amount.Mul(one.Add(straightUpMultiplier))
		g.hits = append(g.hits, Hit{Bet: strconv.Itoa(winning), Payout: won})
		g.payout = g.payout.Add(won)
	}
}
