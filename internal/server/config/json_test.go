package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"endpoint_addr_grpc": "www.example:9000",
		"endpoint_addr_http": "www.example:9001",
		"database_driver":    "sqlite",
		"database_dsn":       "wallet.db",
		"secret_key":         "my_secret_key",
		"webhook_secret":     "hook",
		"lock_timeout":       "750ms",
		"settlement_timeout": 60000000000,
		"catalog_path":       "catalog.yaml",
		"s3_bucket":          "bucket",
		"receipts_enabled":   true,
		"rabbitmq_url":       "amqp://rabbit",
		"log_file":           "wallet.log",
		"rate_limit_rps":     0.5,
		"rate_limit_burst":   1,
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", full}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "www.example:9001", cfg.EndpointAddrHTTP)
		assert.Equal(t, "sqlite", cfg.DatabaseDriver)
		assert.Equal(t, "wallet.db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, "hook", cfg.WebhookSecret)
		assert.Equal(t, 750*time.Millisecond, cfg.LockTimeout)
		assert.Equal(t, time.Minute, cfg.SettlementTimeout)
		assert.Equal(t, "catalog.yaml", cfg.CatalogPath)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.True(t, cfg.ReceiptsEnabled)
		assert.Equal(t, "amqp://rabbit", cfg.RabbitMQURL)
		assert.Equal(t, "wallet.log", cfg.LogFile)
		assert.Equal(t, 0.5, cfg.RateLimitRPS)
		assert.Equal(t, 1, cfg.RateLimitBurst)
	})

	t.Run("absent keys keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"secret_key": "k2"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "k2", cfg.SecretKey)
		assert.Equal(t, ":50051", cfg.EndpointAddrGRPC)
		assert.Equal(t, 2*time.Second, cfg.LockTimeout)
		assert.Equal(t, 20, cfg.RateLimitBurst)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{EndpointAddrGRPC: "defaults:1234", LockTimeout: time.Second}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrGRPC)
		assert.Equal(t, time.Second, cfg.LockTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		os.Args = []string{"testbin", "-config", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
