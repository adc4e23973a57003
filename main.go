package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/config"
	"github.com/chipstack/casinobot/logger"
	"github.com/chipstack/casinobot/monitor"
	"github.com/chipstack/casinobot/persistence"
	"github.com/chipstack/casinobot/server"
)

func main() {
	logger.Init()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	startingBalance, err := decimal.NewFromString(cfg.Casino.StartingBalance)
	if err != nil {
		logger.Log.Fatalf("Bad starting_balance %q: %v", cfg.Casino.StartingBalance, err)
	}
	announceThreshold, err := decimal.NewFromString(cfg.Casino.AnnounceThreshold)
	if err != nil {
		logger.Log.Fatalf("Bad announce_threshold %q: %v", cfg.Casino.AnnounceThreshold, err)
	}

	mon := monitor.NewMonitor("casinobot")
	mon.StartServer(cfg.Server.MetricsAddress)

	casinoServer := server.NewCasinoServer(server.Options{
		WSAddress:         cfg.Server.WSAddress,
		RPCAddress:        cfg.Server.RPCAddress,
		StartingBalance:   startingBalance,
		AnnounceThreshold: announceThreshold,
		Heartbeat:         time.Duration(cfg.Server.HeartbeatSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}, db, mon)

	logger.Log.Infof("Starting casino server on %s", cfg.Server.WSAddress)
	if err := casinoServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

func openDatabase(cfg *config.Config) (persistence.Database, error) {
	pg := cfg.Database.Postgres
	switch cfg.Database.Driver {
	case "sql":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
}
