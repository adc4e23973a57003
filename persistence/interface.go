// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/models"
)

// Database is the storage surface the services operate on. Two
// implementations exist: the GORM one used by the server and a plain
// database/sql one kept for deployments without the ORM.
type Database interface {
	GetPlayer(userID, guildID int64) (*models.Player, error)
	CreatePlayer(player *models.Player) error
	// AdjustPlayerMoney atomically applies a signed delta to a player's
	// balance, failing with ErrInsufficientFunds if it would go negative.
	AdjustPlayerMoney(userID, guildID int64, delta decimal.Decimal) error

	GetActiveGame(userID, guildID int64, gameType string) (*models.ActiveGame, error)
	// SaveActiveGame inserts or updates the single active-game row for the
	// player and game type.
	SaveActiveGame(game *models.ActiveGame) error
	DeleteActiveGame(userID, guildID int64, gameType string) error

	SaveGameRecord(record *models.GameRecord) error
	GetPlayerStats(userID, guildID int64) (*models.PlayerStats, error)

	// Transaction runs fn against a transactional view of the database.
	// Any error returned by fn rolls the whole action back, which is what
	// gives game actions their all-or-nothing behavior.
	Transaction(fn func(tx Database) error) error
	Close() error
}

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
