// Package games holds the contracts shared by every casino game engine.
//
// Engines are synchronous, single-player state machines. A caller constructs
// an engine (or rehydrates one from a stored state string), applies exactly
// one action, then either re-persists the serialized state or discards it
// once the game has ended. Engines never touch the database, the network or
// the player's balance; they only compute state transitions and payouts.
package games

import "errors"

// Game type identifiers, used to key persisted state per (player, game type).
const (
	TypeBlackjack = "blackjack"
	TypeRoulette  = "roulette"
)

// Settled-game outcomes, from the player's perspective. These are the
// values recorded in the game history.
const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
	OutcomePush = "push"
)

var (
	// ErrInvalidAction is returned when an action is attempted in a state
	// that forbids it, e.g. hitting on an ended blackjack game. The engine
	// state is left untouched.
	ErrInvalidAction = errors.New("action not allowed in current game state")

	// ErrInvalidBet is returned when a bet category or number is outside
	// the table's fixed domain.
	ErrInvalidBet = errors.New("bet outside the table domain")

	// ErrNoBetsPlaced is returned when a roulette spin is requested on an
	// empty bet book. No random draw is consumed.
	ErrNoBetsPlaced = errors.New("no bets placed")

	// ErrShoeExhausted is returned when a card is drawn from an empty shoe.
	// Not reachable in a normal round, but never silent.
	ErrShoeExhausted = errors.New("card shoe exhausted")

	// ErrCorruptState is returned when a stored state blob cannot be
	// decoded. Callers must treat the game as unrecoverable.
	ErrCorruptState = errors.New("corrupt game state")
)

// Game is the minimal surface the dispatch layer needs from any engine.
type Game interface {
	// Type returns the game type identifier.
	Type() string
	// Ended reports whether the game has reached a terminal state.
	Ended() bool
	// Serialize encodes the full engine state as an opaque versioned
	// string suitable for storage between actions.
	Serialize() (string, error)
}
