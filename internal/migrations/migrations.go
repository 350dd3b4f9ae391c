// Package migrations embeds the goose SQL migrations for the wallet schema.
// The statements are portable between PostgreSQL and SQLite.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
