// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	// PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/chipstack/casinobot/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL is the plain database/sql implementation of Database.
type PostgreSQL struct {
	db *sql.DB
	tx *sql.Tx
}

// executor is satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (p *PostgreSQL) exec() executor {
	if p.tx != nil {
		return p.tx
	}
	return p.db
}

// NewPostgreSQL opens a pooled PostgreSQL connection and initializes the
// schema.
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS players (
            id SERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            guild_id BIGINT NOT NULL,
            name VARCHAR(255) NOT NULL,
            money NUMERIC(20,2) NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (user_id, guild_id)
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS active_games (
            id SERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            guild_id BIGINT NOT NULL,
            game_type VARCHAR(100) NOT NULL,
            state TEXT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (user_id, guild_id, game_type)
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            guild_id BIGINT NOT NULL,
            game_type VARCHAR(100) NOT NULL,
            wagered NUMERIC(20,2) NOT NULL,
            payout NUMERIC(20,2) NOT NULL,
            outcome VARCHAR(20) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_game_records_identity ON game_records(user_id, guild_id);
    `)
	return err
}

// GetPlayer looks up one account by its chat identity.
func (p *PostgreSQL) GetPlayer(userID, guildID int64) (*models.Player, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var player models.Player
	var money string
	err := p.exec().QueryRowContext(ctx,
		`SELECT id, user_id, guild_id, name, money FROM players WHERE user_id = $1 AND guild_id = $2`,
		userID, guildID,
	).Scan(&player.ID, &player.UserID, &player.GuildID, &player.Name, &money)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	player.Money, err = decimal.NewFromString(money)
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// CreatePlayer inserts a new account row.
func (p *PostgreSQL) CreatePlayer(player *models.Player) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := p.exec().ExecContext(ctx,
		`INSERT INTO players (user_id, guild_id, name, money) VALUES ($1, $2, $3, $4)`,
		player.UserID, player.GuildID, player.Name, player.Money.String())
	return err
}

// AdjustPlayerMoney applies a signed delta, refusing to overdraw.
func (p *PostgreSQL) AdjustPlayerMoney(userID, guildID int64, delta decimal.Decimal) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := p.exec().ExecContext(ctx, `
        UPDATE players
        SET money = money + $3, updated_at = CURRENT_TIMESTAMP
        WHERE user_id = $1 AND guild_id = $2 AND money + $3 >= 0`,
		userID, guildID, delta.String())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := p.GetPlayer(userID, guildID); err != nil {
			return err
		}
		return ErrInsufficientFunds
	}
	return nil
}

// GetActiveGame loads the stored state blob for one game type.
func (p *PostgreSQL) GetActiveGame(userID, guildID int64, gameType string) (*models.ActiveGame, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var game models.ActiveGame
	err := p.exec().QueryRowContext(ctx,
		`SELECT id, user_id, guild_id, game_type, state FROM active_games
         WHERE user_id = $1 AND guild_id = $2 AND game_type = $3`,
		userID, guildID, gameType,
	).Scan(&game.ID, &game.UserID, &game.GuildID, &game.GameType, &game.State)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &game, nil
}

// SaveActiveGame upserts the single active-game row for the player.
func (p *PostgreSQL) SaveActiveGame(game *models.ActiveGame) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := p.exec().ExecContext(ctx, `
        INSERT INTO active_games (user_id, guild_id, game_type, state)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, guild_id, game_type)
        DO UPDATE SET state = $4, updated_at = CURRENT_TIMESTAMP`,
		game.UserID, game.GuildID, game.GameType, game.State)
	return err
}

// DeleteActiveGame discards the stored state once a game has ended.
func (p *PostgreSQL) DeleteActiveGame(userID, guildID int64, gameType string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := p.exec().ExecContext(ctx,
		`DELETE FROM active_games WHERE user_id = $1 AND guild_id = $2 AND game_type = $3`,
		userID, guildID, gameType)
	return err
}

// SaveGameRecord appends one settled game to the history.
func (p *PostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := p.exec().ExecContext(ctx, `
        INSERT INTO game_records (user_id, guild_id, game_type, wagered, payout, outcome)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		record.UserID, record.GuildID, record.GameType,
		record.Wagered.String(), record.Payout.String(), record.Outcome)
	return err
}

// GetPlayerStats aggregates the player's settled games.
func (p *PostgreSQL) GetPlayerStats(userID, guildID int64) (*models.PlayerStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var stats models.PlayerStats
	var wagered, payout string
	err := p.exec().QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN outcome = 'win' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN outcome = 'lose' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN outcome = 'push' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(wagered), 0),
            COALESCE(SUM(payout), 0)
        FROM game_records WHERE user_id = $1 AND guild_id = $2`,
		userID, guildID,
	).Scan(&stats.TotalGames, &stats.Wins, &stats.Losses, &stats.Pushes, &wagered, &payout)
	if err != nil {
		return nil, err
	}

	if stats.TotalWagered, err = decimal.NewFromString(wagered); err != nil {
		return nil, err
	}
	if stats.TotalPayout, err = decimal.NewFromString(payout); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Transaction runs fn inside one SQL transaction. Nested calls reuse the
// surrounding transaction.
func (p *PostgreSQL) Transaction(fn func(tx Database) error) error {
	if p.tx != nil {
		return fn(p)
	}

	tx, err := p.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}

	if err := fn(&PostgreSQL{db: p.db, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%v (rollback failed: %w)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Close closes the underlying connection pool.
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
