package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type QuotaConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	LeadDaily int  `mapstructure:"lead_daily"`
}

type RoutingConfig struct {
	// Agent returned when every team member is paused and no fallback
	// candidate remains.
	DefaultAgentID string `mapstructure:"default_agent_id"`
}

type CreditsConfig struct {
	// IANA timezone used for the daily-spend window. The cap rolls over at
	// midnight in this zone, not at UTC midnight.
	Timezone string `mapstructure:"timezone"`
}

type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Routing  RoutingConfig  `mapstructure:"routing"`
	Credits  CreditsConfig  `mapstructure:"credits"`
}

// Load reads configuration from config.yaml (optional), .env (optional) and
// CASAFLOW_* environment variables, in increasing precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/casaflow")

	v.SetEnvPrefix("CASAFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.dsn", "casaflow.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("redis.addr", "")
	v.SetDefault("quota.enabled", false)
	v.SetDefault("quota.lead_daily", 0)
	v.SetDefault("routing.default_agent_id", "agent-1")
	v.SetDefault("credits.timezone", "UTC")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
