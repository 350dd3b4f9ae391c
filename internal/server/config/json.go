package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dualwallet/internal/flagx"
	"github.com/dmitrijs2005/dualwallet/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations use timex.Duration so
// both "2m" and integer nanoseconds are accepted. Pointer fields tell an
// absent key apart from a zero value.
type JsonConfig struct {
	EndpointAddrGRPC  string          `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP  string          `json:"endpoint_addr_http"`
	DatabaseDriver    string          `json:"database_driver"`
	DatabaseDSN       string          `json:"database_dsn"`
	SecretKey         string          `json:"secret_key"`
	WebhookSecret     string          `json:"webhook_secret"`
	LockTimeout       *timex.Duration `json:"lock_timeout"`
	SettlementTimeout *timex.Duration `json:"settlement_timeout"`
	CatalogPath       string          `json:"catalog_path"`
	S3RootUser        string          `json:"s3_root_user"`
	S3RootPassword    string          `json:"s3_root_password"`
	S3Bucket          string          `json:"s3_bucket"`
	S3Region          string          `json:"s3_region"`
	S3BaseEndpoint    string          `json:"s3_base_endpoint"`
	ReceiptsEnabled   *bool           `json:"receipts_enabled"`
	RabbitMQURL       string          `json:"rabbitmq_url"`
	RabbitMQExchange  string          `json:"rabbitmq_exchange"`
	LogFile           string          `json:"log_file"`
	RateLimitRPS      *float64        `json:"rate_limit_rps"`
	RateLimitBurst    *int            `json:"rate_limit_burst"`
}

// parseJson overlays values from the JSON file named by -c/-config. Keys
// missing from the file keep their current value. An unreadable or invalid
// file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.WebhookSecret, c.WebhookSecret)
	setString(&config.CatalogPath, c.CatalogPath)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.RabbitMQURL, c.RabbitMQURL)
	setString(&config.RabbitMQExchange, c.RabbitMQExchange)
	setString(&config.LogFile, c.LogFile)

	if c.LockTimeout != nil {
		config.LockTimeout = c.LockTimeout.Duration
	}
	if c.SettlementTimeout != nil {
		config.SettlementTimeout = c.SettlementTimeout.Duration
	}
	if c.ReceiptsEnabled != nil {
		config.ReceiptsEnabled = *c.ReceiptsEnabled
	}
	if c.RateLimitRPS != nil {
		config.RateLimitRPS = *c.RateLimitRPS
	}
	if c.RateLimitBurst != nil {
		config.RateLimitBurst = *c.RateLimitBurst
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
