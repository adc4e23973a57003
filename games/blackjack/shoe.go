package blackjack

import (
	"math/rand"

	"github.com/chipstack/casinobot/games"
)

// Shoe is the shuffled card population for one game. Draws are destructive;
// cards are never replaced within a game.
type Shoe []Card

// NewShuffledShoe builds a full 52-card shoe as a uniform random permutation
// using Fisher-Yates with the supplied source.
func NewShuffledShoe(rng *rand.Rand) Shoe {
	shoe := make(Shoe, 0, len(ranks)*len(suits))
	for _, suit := range suits {
		for _, rank := range ranks {
			shoe = append(shoe, Card{Rank: rank, Suit: suit})
		}
	}
	for i := len(shoe) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shoe[i], shoe[j] = shoe[j], shoe[i]
	}
	return shoe
}

// Draw removes and returns the last card of the shoe.
func (s *Shoe) Draw() (Card, error) {
	if len(*s) == 0 {
		return Card{}, games.ErrShoeExhausted
	}
	card := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return card, nil
}
