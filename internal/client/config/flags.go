package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/dualwallet/internal/flagx"
)

// parseFlags populates Config fields from the flags listed in the package
// documentation. Other arguments are ignored.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-u", "-t", "-f", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "wallet database path")
	fs.StringVar(&cfg.AccountID, "u", cfg.AccountID, "account id")
	fs.DurationVar(&cfg.SettlementTimeout, "t", cfg.SettlementTimeout, "settlement timeout")
	fs.StringVar(&cfg.CatalogPath, "f", cfg.CatalogPath, "catalog file")
	fs.StringVar(&cfg.LogFile, "o", cfg.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
