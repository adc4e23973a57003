package blackjack

import (
	"fmt"
)

// Rank is a card rank. Aces are valued by the hand evaluator, which decides
// between 1 and 11; Value always reports the hard value.
type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

// Suit is a card suit.
type Suit string

const (
	Spades   Suit = "S"
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
)

var ranks = [13]Rank{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

var suits = [4]Suit{Spades, Hearts, Diamonds, Clubs}

var rankValues = map[Rank]int{
	RankAce: 1, RankTwo: 2, RankThree: 3, RankFour: 4, RankFive: 5,
	RankSix: 6, RankSeven: 7, RankEight: 8, RankNine: 9, RankTen: 10,
	RankJack: 10, RankQueen: 10, RankKing: 10,
}

// Card is a single playing card.
type Card struct {
	Rank Rank
	Suit Suit
}

// Value returns the card's hard blackjack point value: Ace counts 1, face
// cards count 10.
func (c Card) Value() int {
	return rankValues[c.Rank]
}

// String renders the card as rank followed by suit, e.g. "AS" or "10H".
func (c Card) String() string {
	return string(c.Rank) + string(c.Suit)
}

// MarshalText implements encoding.TextMarshaler so hands and shoes encode
// as compact card strings.
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses the compact card string form.
func (c *Card) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) < 2 {
		return fmt.Errorf("malformed card %q", s)
	}
	rank, suit := Rank(s[:len(s)-1]), Suit(s[len(s)-1:])
	if _, ok := rankValues[rank]; !ok {
		return fmt.Errorf("unknown card rank %q", rank)
	}
	switch suit {
	case Spades, Hearts, Diamonds, Clubs:
	default:
		return fmt.Errorf("unknown card suit %q", suit)
	}
	c.Rank, c.Suit = rank, suit
	return nil
}
