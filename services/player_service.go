// services/player_service.go
package services

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/models"
	"github.com/chipstack/casinobot/persistence"
)

var (
	// ErrNoAccount is returned when a player acts before creating an
	// account.
	ErrNoAccount = errors.New("player has no account")

	// ErrAccountExists is returned when an account is created twice.
	ErrAccountExists = errors.New("player already has an account")
)

type PlayerService struct {
	db              persistence.Database
	startingBalance decimal.Decimal
}

func NewPlayerService(db persistence.Database, startingBalance decimal.Decimal) *PlayerService {
	return &PlayerService{db: db, startingBalance: startingBalance}
}

// CreateAccount opens an account with the configured starting balance.
func (s *PlayerService) CreateAccount(userID, guildID int64, name string) (*models.Player, error) {
	var player *models.Player
	err := s.db.Transaction(func(tx persistence.Database) error {
		_, err := tx.GetPlayer(userID, guildID)
		if err == nil {
			return ErrAccountExists
		}
		if !errors.Is(err, persistence.ErrRecordNotFound) {
			return err
		}

		player = &models.Player{
			UserID:  userID,
			GuildID: guildID,
			Name:    name,
			Money:   s.startingBalance,
		}
		return tx.CreatePlayer(player)
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// GetPlayer returns the account, or ErrNoAccount.
func (s *PlayerService) GetPlayer(userID, guildID int64) (*models.Player, error) {
	player, err := s.db.GetPlayer(userID, guildID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrNoAccount
	}
	return player, err
}

// GetPlayerWithStats returns the account together with its settled-game
// aggregates.
func (s *PlayerService) GetPlayerWithStats(userID, guildID int64) (*models.Player, *models.PlayerStats, error) {
	var (
		player *models.Player
		stats  *models.PlayerStats
	)
	err := s.db.Transaction(func(tx persistence.Database) error {
		var err error
		player, err = tx.GetPlayer(userID, guildID)
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return ErrNoAccount
		}
		if err != nil {
			return err
		}
		stats, err = tx.GetPlayerStats(userID, guildID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return player, stats, nil
}
