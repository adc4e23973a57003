package roulette

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/games"
)

const codecVersion = 1

// outsideEntry carries the running amount together with the category's
// multiplier so the blob is self-describing.
type outsideEntry struct {
	Amount     decimal.Decimal `json:"amount"`
	Multiplier decimal.Decimal `json:"payout"`
}

type hitEntry struct {
	Bet    string          `json:"bet"`
	Payout decimal.Decimal `json:"payout"`
}

// gameState is the wire form of a round. Inside bets are keyed by the
// number's text form; the winning number is present only once resolved.
type gameState struct {
	Version int                        `json:"v"`
	Outside map[string]outsideEntry    `json:"outside_bets"`
	Inside  map[string]decimal.Decimal `json:"inside_bets"`
	Placed  *bool                      `json:"bet_placed"`
	Wagered *decimal.Decimal           `json:"bet_total"`
	Payout  *decimal.Decimal           `json:"total_payout"`
	Winning *int                       `json:"tile_picked,omitempty"`
	Hits    []hitEntry                 `json:"bet_hits,omitempty"`
}

// Serialize encodes the round as an opaque versioned string.
func (g *Game) Serialize() (string, error) {
	state := gameState{
		Version: codecVersion,
		Outside: make(map[string]outsideEntry, len(g.outside)),
		Inside:  make(map[string]decimal.Decimal, len(g.inside)),
		Placed:  &g.placed,
		Wagered: &g.wagered,
		Payout:  &g.payout,
	}
	for bet, amount := range g.outside {
		state.Outside[string(bet)] = outsideEntry{Amount: amount, Multiplier: bet.Multiplier()}
	}
	for number, amount := range g.inside {
		state.Inside[strconv.Itoa(number)] = amount
	}
	if g.resolved {
		winning := g.winning
		state.Winning = &winning
		for _, hit := range g.hits {
			state.Hits = append(state.Hits, hitEntry{Bet: hit.Bet, Payout: hit.Payout})
		}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("serialize roulette state: %w", err)
	}
	return string(data), nil
}

// Deserialize rebuilds a round from a stored state string, failing with
// games.ErrCorruptState on missing fields, unknown categories or numbers
// outside the table.
func Deserialize(blob string) (*Game, error) {
	var state gameState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("%w: %v", games.ErrCorruptState, err)
	}
	if state.Version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", games.ErrCorruptState, state.Version)
	}
	if state.Placed == nil || state.Wagered == nil || state.Payout == nil || state.Outside == nil {
		return nil, fmt.Errorf("%w: missing required field", games.ErrCorruptState)
	}
	game := New()
	for name, entry := range state.Outside {
		bet := OutsideBet(name)
		if !bet.Valid() {
			return nil, fmt.Errorf("%w: unknown outside bet %q", games.ErrCorruptState, name)
		}
		if entry.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: negative amount", games.ErrCorruptState)
		}
		game.outside[bet] = entry.Amount
	}
	for key, amount := range state.Inside {
		number, err := strconv.Atoi(key)
		if err != nil || number < 0 || number >= tableSize {
			return nil, fmt.Errorf("%w: invalid table number %q", games.ErrCorruptState, key)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("%w: negative amount", games.ErrCorruptState)
		}
		game.inside[number] = amount
	}
	game.placed = *state.Placed
	game.wagered = *state.Wagered
	game.payout = *state.Payout
	if state.Winning != nil {
		if *state.Winning < 0 || *state.Winning >= tableSize {
			return nil, fmt.Errorf("%w: invalid winning number %d", games.ErrCorruptState, *state.Winning)
		}
		game.resolved = true
		game.winning = *state.Winning
		for _, hit := range state.Hits {
			game.hits = append(game.hits, Hit{Bet: hit.Bet, Payout: hit.Payout})
		}
	}
	return game, nil
}
