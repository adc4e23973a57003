package blackjack

// Hand is an ordered, append-only sequence of cards.
type Hand []Card

// Value computes the best blackjack value of the hand.
//
// The hard total counts every ace as 1. If the hand holds at least one ace
// there is a single alternate soft total of hard+10: only one ace can be
// soft at a time, a second +10 would always bust. The soft total is
// preferred while it does not exceed 21; bust values are reported as-is so
// bust comparisons work.
func (h Hand) Value() int {
	hard := 0
	hasAce := false
	for _, c := range h {
		v := c.Value()
		if v == 1 {
			hasAce = true
		}
		hard += v
	}
	if hasAce {
		if soft := hard + 10; soft <= 21 {
			return soft
		}
	}
	return hard
}

// IsBust reports whether the hand's best value exceeds 21.
func (h Hand) IsBust() bool {
	return h.Value() > 21
}

// IsNatural reports whether the hand is a two-card 21 dealt directly.
func (h Hand) IsNatural() bool {
	return len(h) == 2 && h.Value() == 21
}
