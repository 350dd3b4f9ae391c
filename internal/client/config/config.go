package config

import "time"

// Config holds runtime settings for the wallet CLI.
type Config struct {
	DatabasePath      string
	AccountID         string
	SettlementTimeout time.Duration
	CatalogPath       string
	LogFile           string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "wallet.db"
	c.AccountID = "local"
	c.SettlementTimeout = 2 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
