package roulette

import "github.com/shopspring/decimal"

// OutsideBet is one of the fixed outside bet categories on the table. The
// names double as the wire identifiers in serialized state and in command
// input.
type OutsideBet string

const (
	Even        OutsideBet = "even"
	Odd         OutsideBet = "odd"
	FirstDozen  OutsideBet = "first twelve"
	SecondDozen OutsideBet = "second twelve"
	ThirdDozen  OutsideBet = "third twelve"
	LowHalf     OutsideBet = "first 18"
	HighHalf    OutsideBet = "second 18"
)

// outsideBets fixes the table layout and the iteration order used during
// settlement and serialization.
var outsideBets = [7]OutsideBet{
	Even, Odd, FirstDozen, SecondDozen, ThirdDozen, LowHalf, HighHalf,
}

var (
	evenMoney = decimal.NewFromInt(1)
	dozenPays = decimal.NewFromInt(2)
)

// OutsideBets returns every valid outside bet category in table order.
func OutsideBets() []OutsideBet {
	return outsideBets[:]
}

// Valid reports whether b is one of the table's categories.
func (b OutsideBet) Valid() bool {
	for _, known := range outsideBets {
		if b == known {
			return true
		}
	}
	return false
}

// Multiplier returns the category's fixed payout multiplier: 2 for the
// dozens, even money for the rest.
func (b OutsideBet) Multiplier() decimal.Decimal {
	switch b {
	case FirstDozen, SecondDozen, ThirdDozen:
		return dozenPays
	default:
		return evenMoney
	}
}

// Matches reports whether the winning number satisfies the category. Zero
// loses every outside bet.
func (b OutsideBet) Matches(n int) bool {
	if n == 0 {
		return false
	}
	switch b {
	case Even:
		return n%2 == 0
	case Odd:
		return n%2 == 1
	case FirstDozen:
		return n >= 1 && n <= 12
	case SecondDozen:
		return n >= 13 && n <= 24
	case ThirdDozen:
		return n >= 25 && n <= 36
	case LowHalf:
		return n >= 1 && n <= 18
	case HighHalf:
		return n >= 19 && n <= 36
	default:
		return false
	}
}
