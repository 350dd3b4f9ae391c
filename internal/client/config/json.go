package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dualwallet/internal/flagx"
	"github.com/dmitrijs2005/dualwallet/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	DatabasePath      string          `json:"database_path"`
	AccountID         string          `json:"account_id"`
	SettlementTimeout *timex.Duration `json:"settlement_timeout"`
	CatalogPath       string          `json:"catalog_path"`
	LogFile           string          `json:"log_file"`
}

// parseJson overlays Config with values from the JSON file named by -c or
// -config. Keys absent from the file are left alone. Read or decode errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.AccountID != "" {
		cfg.AccountID = jc.AccountID
	}
	if jc.SettlementTimeout != nil {
		cfg.SettlementTimeout = jc.SettlementTimeout.Duration
	}
	if jc.CatalogPath != "" {
		cfg.CatalogPath = jc.CatalogPath
	}
	if jc.LogFile != "" {
		cfg.LogFile = jc.LogFile
	}
}
