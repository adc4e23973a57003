// Package models defines the persistent records: player accounts, the
// serialized state blob of each active game and the history of settled
// games. Monetary columns are numeric, mapped to exact decimals in Go.
package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Player is one chat user's casino account within a guild.
type Player struct {
	gorm.Model
	UserID  int64           `gorm:"uniqueIndex:idx_player_identity;not null"`
	GuildID int64           `gorm:"uniqueIndex:idx_player_identity;not null"`
	Name    string          `gorm:"not null"`
	Money   decimal.Decimal `gorm:"type:numeric(20,2);not null"`
}

// ActiveGame stores the opaque engine state between two player actions.
// At most one row exists per (player, guild, game type); the blob is written
// by the engine's codec and passed back to it unchanged.
type ActiveGame struct {
	gorm.Model
	UserID   int64  `gorm:"uniqueIndex:idx_active_game;not null"`
	GuildID  int64  `gorm:"uniqueIndex:idx_active_game;not null"`
	GameType string `gorm:"uniqueIndex:idx_active_game;not null"`
	State    string `gorm:"type:text;not null"`
}

// GameRecord is the settled history of one finished game, kept for player
// statistics after the active state has been discarded.
type GameRecord struct {
	gorm.Model
	UserID   int64           `gorm:"index:idx_record_identity"`
	GuildID  int64           `gorm:"index:idx_record_identity"`
	GameType string          `gorm:"not null"`
	Wagered  decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Payout   decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Outcome  string          `gorm:"not null"` // win/lose/push
}

// PlayerStats aggregates a player's game records.
type PlayerStats struct {
	TotalGames   int             `json:"total_games"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
	Pushes       int             `json:"pushes"`
	TotalWagered decimal.Decimal `json:"total_wagered"`
	TotalPayout  decimal.Decimal `json:"total_payout"`
}
