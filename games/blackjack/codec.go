package blackjack

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/games"
)

// codecVersion tags the serialized layout so stored blobs from a future
// layout are rejected instead of misread.
const codecVersion = 1

// gameState is the wire form of a game. Monetary amounts travel as exact
// decimal text; cards as compact rank+suit strings. Required fields are
// pointers so that absence is distinguishable from a zero value.
type gameState struct {
	Version       int              `json:"v"`
	Remaining     []Card           `json:"remaining_cards"`
	Dealer        []Card           `json:"dealer_hand"`
	Player        []Card           `json:"player_hand"`
	Wager         *decimal.Decimal `json:"bet_amount"`
	Payout        *decimal.Decimal `json:"payout"`
	Ended         *bool            `json:"game_ended"`
	CanDoubleDown *bool            `json:"can_double_down"`
}

// Serialize encodes the full game state as an opaque versioned string. The
// caller stores it between actions and passes it back unchanged.
func (g *Game) Serialize() (string, error) {
	state := gameState{
		Version:       codecVersion,
		Remaining:     g.shoe,
		Dealer:        g.dealer,
		Player:        g.player,
		Wager:         &g.wager,
		Payout:        &g.payout,
		Ended:         &g.ended,
		CanDoubleDown: &g.canDoubleDown,
	}
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("serialize blackjack state: %w", err)
	}
	return string(data), nil
}

// Deserialize rebuilds a game from a stored state string. It returns
// games.ErrCorruptState when required fields are absent or unparseable;
// the caller must then treat the game as unrecoverable.
func Deserialize(blob string) (*Game, error) {
	var state gameState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("%w: %v", games.ErrCorruptState, err)
	}
	if state.Version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", games.ErrCorruptState, state.Version)
	}
	if state.Wager == nil || state.Payout == nil || state.Ended == nil || state.CanDoubleDown == nil {
		return nil, fmt.Errorf("%w: missing required field", games.ErrCorruptState)
	}
	if state.Dealer == nil || state.Player == nil {
		return nil, fmt.Errorf("%w: missing hand", games.ErrCorruptState)
	}
	if state.Wager.IsNegative() || state.Payout.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount", games.ErrCorruptState)
	}
	return &Game{
		shoe:          append(Shoe(nil), state.Remaining...),
		dealer:        append(Hand(nil), state.Dealer...),
		player:        append(Hand(nil), state.Player...),
		wager:         *state.Wager,
		payout:        *state.Payout,
		ended:         *state.Ended,
		canDoubleDown: *state.CanDoubleDown,
	}, nil
}
