// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chipstack/casinobot/models"
)

// GormPostgreSQL is the primary Database implementation, backed by GORM.
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL opens a pooled PostgreSQL connection and migrates the
// schema.
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Player{},
		&models.ActiveGame{},
		&models.GameRecord{},
	)
}

// GetPlayer looks up one account by its chat identity.
func (p *GormPostgreSQL) GetPlayer(userID, guildID int64) (*models.Player, error) {
	var player models.Player
	err := p.db.Where("user_id = ? AND guild_id = ?", userID, guildID).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &player, nil
}

// CreatePlayer inserts a new account row.
func (p *GormPostgreSQL) CreatePlayer(player *models.Player) error {
	return p.db.Create(player).Error
}

// AdjustPlayerMoney applies a signed delta to the balance. The balance is
// re-read inside the statement so concurrent actions cannot overdraw.
func (p *GormPostgreSQL) AdjustPlayerMoney(userID, guildID int64, delta decimal.Decimal) error {
	result := p.db.Model(&models.Player{}).
		Where("user_id = ? AND guild_id = ? AND money + ? >= 0", userID, guildID, delta).
		Update("money", gorm.Expr("money + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either no such player or the delta would overdraw.
		if _, err := p.GetPlayer(userID, guildID); err != nil {
			return err
		}
		return ErrInsufficientFunds
	}
	return nil
}

// GetActiveGame loads the stored state blob for one game type.
func (p *GormPostgreSQL) GetActiveGame(userID, guildID int64, gameType string) (*models.ActiveGame, error) {
	var game models.ActiveGame
	err := p.db.Where("user_id = ? AND guild_id = ? AND game_type = ?",
		userID, guildID, gameType).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &game, nil
}

// SaveActiveGame upserts the single active-game row for the player.
func (p *GormPostgreSQL) SaveActiveGame(game *models.ActiveGame) error {
	if game.ID != 0 {
		return p.db.Save(game).Error
	}

	var existing models.ActiveGame
	err := p.db.Where("user_id = ? AND guild_id = ? AND game_type = ?",
		game.UserID, game.GuildID, game.GameType).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p.db.Create(game).Error
	} else if err != nil {
		return err
	}

	existing.State = game.State
	return p.db.Save(&existing).Error
}

// DeleteActiveGame discards the stored state once a game has ended.
func (p *GormPostgreSQL) DeleteActiveGame(userID, guildID int64, gameType string) error {
	return p.db.Where("user_id = ? AND guild_id = ? AND game_type = ?",
		userID, guildID, gameType).Delete(&models.ActiveGame{}).Error
}

// SaveGameRecord appends one settled game to the history.
func (p *GormPostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	return p.db.Create(record).Error
}

// GetPlayerStats aggregates the player's settled games.
func (p *GormPostgreSQL) GetPlayerStats(userID, guildID int64) (*models.PlayerStats, error) {
	var row struct {
		TotalGames   int
		Wins         int
		Losses       int
		Pushes       int
		TotalWagered decimal.Decimal
		TotalPayout  decimal.Decimal
	}

	err := p.db.Raw(`
        SELECT
            COUNT(*) AS total_games,
            COALESCE(SUM(CASE WHEN outcome = 'win' THEN 1 ELSE 0 END), 0) AS wins,
            COALESCE(SUM(CASE WHEN outcome = 'lose' THEN 1 ELSE 0 END), 0) AS losses,
            COALESCE(SUM(CASE WHEN outcome = 'push' THEN 1 ELSE 0 END), 0) AS pushes,
            COALESCE(SUM(wagered), 0) AS total_wagered,
            COALESCE(SUM(payout), 0) AS total_payout
        FROM game_records
        WHERE user_id = ? AND guild_id = ? AND deleted_at IS NULL`,
		userID, guildID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &models.PlayerStats{
		TotalGames:   row.TotalGames,
		Wins:         row.Wins,
		Losses:       row.Losses,
		Pushes:       row.Pushes,
		TotalWagered: row.TotalWagered,
		TotalPayout:  row.TotalPayout,
	}, nil
}

// Transaction runs fn against a transactional copy of the store.
func (p *GormPostgreSQL) Transaction(fn func(tx Database) error) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormPostgreSQL{db: tx})
	})
}

// Close closes the underlying connection pool.
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
