package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Casino   CasinoConfig   `mapstructure:"casino"`
}

type ServerConfig struct {
	WSAddress      string `mapstructure:"ws_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`

	HeartbeatSeconds   int `mapstructure:"heartbeat_seconds"`
	IdleTimeoutSeconds int `mapstructure:"idle_timeout_seconds"`
}

type DatabaseConfig struct {
	// Driver selects the storage backend: "gorm" or "sql".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type CasinoConfig struct {
	// Money amounts are decimal strings so they survive config parsing
	// without float rounding.
	StartingBalance   string `mapstructure:"starting_balance"`
	AnnounceThreshold string `mapstructure:"announce_threshold"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.ws_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("server.heartbeat_seconds", 30)
	viper.SetDefault("server.idle_timeout_seconds", 300)
	viper.SetDefault("database.driver", "gorm")
	viper.SetDefault("casino.starting_balance", "1000")
	viper.SetDefault("casino.announce_threshold", "500")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
