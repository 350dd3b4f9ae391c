// Package config loads runtime configuration for the wallet CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string    path of the local SQLite wallet database
//	-u string    account id the CLI operates on
//	-t duration  how long a purchase waits for payment confirmation
//	-f string    catalog YAML file (built-in catalog when empty)
//	-o string    log file (no logging when empty)
package config
