// commands/commands.go
package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/games"
	"github.com/chipstack/casinobot/logger"
	"github.com/chipstack/casinobot/models"
	"github.com/chipstack/casinobot/persistence"
	"github.com/chipstack/casinobot/services"
)

// Command names accepted in a Request.
const (
	CmdAccount   = "account"
	CmdBalance   = "balance"
	CmdStats     = "stats"
	CmdBlackjack = "blackjack"
	CmdRoulette  = "roulette"
)

// Roulette actions. Blackjack actions are the services tokens.
const (
	RouletteActionBet  = "bet"
	RouletteActionSpin = "spin"
)

// BetTypeNumber selects a straight-up bet; Number carries the tile.
const BetTypeNumber = "number"

// Request is one decoded command packet.
type Request struct {
	Command string `json:"command"`
	Action  string `json:"action,omitempty"`
	BetType string `json:"bet_type,omitempty"`
	Number  *int   `json:"number,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

// PlayerInfo is the account part of a response.
type PlayerInfo struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// StatsInfo is the settled-game aggregate part of a response.
type StatsInfo struct {
	TotalGames   int             `json:"total_games"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
	Pushes       int             `json:"pushes"`
	TotalWagered decimal.Decimal `json:"total_wagered"`
	TotalPayout  decimal.Decimal `json:"total_payout"`
}

// Response is what goes back to the client for every command.
type Response struct {
	OK        bool                         `json:"ok"`
	Message   string                       `json:"message,omitempty"`
	Player    *PlayerInfo                  `json:"player,omitempty"`
	Stats     *StatsInfo                   `json:"stats,omitempty"`
	Blackjack *services.BlackjackSnapshot  `json:"blackjack,omitempty"`
	Roulette  *services.RouletteSnapshot   `json:"roulette,omitempty"`
}

// PlayerOps is the slice of PlayerService the router needs.
type PlayerOps interface {
	CreateAccount(userID, guildID int64, name string) (*models.Player, error)
	GetPlayer(userID, guildID int64) (*models.Player, error)
	GetPlayerWithStats(userID, guildID int64) (*models.Player, *models.PlayerStats, error)
}

// GameOps is the slice of GameService the router needs.
type GameOps interface {
	BlackjackAction(userID, guildID int64, action string, amount decimal.Decimal) (*services.BlackjackSnapshot, error)
	PlaceOutsideBet(userID, guildID int64, bet string, amount decimal.Decimal) (*services.RouletteSnapshot, error)
	PlaceInsideBet(userID, guildID int64, number int, amount decimal.Decimal) (*services.RouletteSnapshot, error)
	SpinRoulette(userID, guildID int64) (*services.RouletteSnapshot, error)
}

// Router decodes command packets, runs them against the services and
// builds the reply. Engine and service failures become user-facing
// messages; anything unexpected is logged and reported generically.
type Router struct {
	players PlayerOps
	games   GameOps
}

func NewRouter(players PlayerOps, games GameOps) *Router {
	return &Router{players: players, games: games}
}

// Handle runs one raw command packet for an authenticated identity.
func (r *Router) Handle(userID, guildID int64, name string, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return fail("malformed command")
	}

	switch req.Command {
	case CmdAccount:
		return r.handleAccount(userID, guildID, name)
	case CmdBalance:
		return r.handleBalance(userID, guildID)
	case CmdStats:
		return r.handleStats(userID, guildID)
	case CmdBlackjack:
		return r.handleBlackjack(userID, guildID, &req)
	case CmdRoulette:
		return r.handleRoulette(userID, guildID, &req)
	default:
		return fail(fmt.Sprintf("unknown command %q", req.Command))
	}
}

func (r *Router) handleAccount(userID, guildID int64, name string) *Response {
	player, err := r.players.CreateAccount(userID, guildID, name)
	if err != nil {
		return errorResponse(err)
	}
	return &Response{
		OK:      true,
		Message: "account created",
		Player:  playerInfo(player),
	}
}

func (r *Router) handleBalance(userID, guildID int64) *Response {
	player, err := r.players.GetPlayer(userID, guildID)
	if err != nil {
		return errorResponse(err)
	}
	return &Response{OK: true, Player: playerInfo(player)}
}

func (r *Router) handleStats(userID, guildID int64) *Response {
	player, stats, err := r.players.GetPlayerWithStats(userID, guildID)
	if err != nil {
		return errorResponse(err)
	}
	return &Response{
		OK:     true,
		Player: playerInfo(player),
		Stats: &StatsInfo{
			TotalGames:   stats.TotalGames,
			Wins:         stats.Wins,
			Losses:       stats.Losses,
			Pushes:       stats.Pushes,
			TotalWagered: stats.TotalWagered,
			TotalPayout:  stats.TotalPayout,
		},
	}
}

func (r *Router) handleBlackjack(userID, guildID int64, req *Request) *Response {
	var amount decimal.Decimal
	if req.Action == services.ActionStart {
		var err error
		if amount, err = parseAmount(req.Amount); err != nil {
			return fail(err.Error())
		}
	}

	snapshot, err := r.games.BlackjackAction(userID, guildID, req.Action, amount)
	if err != nil {
		return errorResponse(err)
	}
	return &Response{OK: true, Blackjack: snapshot}
}

func (r *Router) handleRoulette(userID, guildID int64, req *Request) *Response {
	switch req.Action {
	case RouletteActionSpin:
		snapshot, err := r.games.SpinRoulette(userID, guildID)
		if err != nil {
			return errorResponse(err)
		}
		return &Response{OK: true, Roulette: snapshot}

	case RouletteActionBet:
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return fail(err.Error())
		}

		var snapshot *services.RouletteSnapshot
		if req.BetType == BetTypeNumber {
			if req.Number == nil {
				return fail("number bet needs a tile")
			}
			snapshot, err = r.games.PlaceInsideBet(userID, guildID, *req.Number, amount)
		} else {
			snapshot, err = r.games.PlaceOutsideBet(userID, guildID, req.BetType, amount)
		}
		if err != nil {
			return errorResponse(err)
		}
		return &Response{OK: true, Roulette: snapshot}

	default:
		return fail(fmt.Sprintf("unknown roulette action %q", req.Action))
	}
}

func playerInfo(player *models.Player) *PlayerInfo {
	return &PlayerInfo{Name: player.Name, Balance: player.Money}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, errors.New("missing bet amount")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad bet amount %q", raw)
	}
	return amount, nil
}

func fail(message string) *Response {
	return &Response{Message: message}
}

// errorResponse maps known failures to messages a player can act on.
func errorResponse(err error) *Response {
	switch {
	case errors.Is(err, services.ErrNoAccount):
		return fail("you have no account yet, create one first")
	case errors.Is(err, services.ErrAccountExists):
		return fail("you already have an account")
	case errors.Is(err, services.ErrNoActiveGame):
		return fail("you have no game in play")
	case errors.Is(err, services.ErrInvalidAmount):
		return fail("bet amount must be positive")
	case errors.Is(err, services.ErrUnknownAction):
		return fail("unknown action")
	case errors.Is(err, persistence.ErrInsufficientFunds):
		return fail("not enough money")
	case errors.Is(err, games.ErrInvalidAction):
		return fail("that action is not allowed right now")
	case errors.Is(err, games.ErrInvalidBet):
		return fail("that bet is not on the table")
	case errors.Is(err, games.ErrNoBetsPlaced):
		return fail("place a bet first")
	default:
		logger.Log.Errorf("command failed: %v", err)
		return fail("something went wrong, try again")
	}
}
