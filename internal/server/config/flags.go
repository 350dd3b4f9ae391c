package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/dualwallet/internal/flagx"
)

var serverFlags = []string{
	"-a", "-w", "-n", "-d", "-s", "-k", "-l", "-t", "-f",
	"-u", "-p", "-b", "-g", "-e", "-R", "-m", "-x", "-o", "-q", "-z",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    gRPC bind address (e.g., ":50051")
//	-w string    HTTP bind address (e.g., ":8080")
//	-n string    database driver, "pgx" or "sqlite"
//	-d string    database DSN
//	-s string    JWT HMAC secret key
//	-k string    settlement webhook secret
//	-l duration  account lock timeout (e.g., "2s")
//	-t duration  settlement timeout (e.g., "2m")
//	-f string    catalog YAML file
//	-u string    S3 root user
//	-p string    S3 root password
//	-b string    S3 bucket name
//	-g string    S3 region
//	-e string    S3 base endpoint
//	-R bool      upload receipts to S3 (use -R=true)
//	-m string    RabbitMQ URL
//	-x string    RabbitMQ exchange
//	-o string    log file
//	-q float     rate limit, requests per second per account
//	-z int       rate limit burst
//
// Only the flags above are taken from os.Args (see flagx.FilterArgs), so the
// -c/-config flag of the JSON layer does not collide with them.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port of the gRPC server")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "address and port of the HTTP server")
	fs.StringVar(&config.DatabaseDriver, "n", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.WebhookSecret, "k", config.WebhookSecret, "webhook secret")
	fs.DurationVar(&config.LockTimeout, "l", config.LockTimeout, "account lock timeout")
	fs.DurationVar(&config.SettlementTimeout, "t", config.SettlementTimeout, "settlement timeout")
	fs.StringVar(&config.CatalogPath, "f", config.CatalogPath, "catalog file")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 receipts bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.ReceiptsEnabled, "R", config.ReceiptsEnabled, "store receipts in S3")

	fs.StringVar(&config.RabbitMQURL, "m", config.RabbitMQURL, "RabbitMQ URL")
	fs.StringVar(&config.RabbitMQExchange, "x", config.RabbitMQExchange, "RabbitMQ exchange")
	fs.StringVar(&config.LogFile, "o", config.LogFile, "log file")
	fs.Float64Var(&config.RateLimitRPS, "q", config.RateLimitRPS, "requests per second per account")
	fs.IntVar(&config.RateLimitBurst, "z", config.RateLimitBurst, "rate limit burst")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
