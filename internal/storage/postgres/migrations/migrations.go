// Package migrations embeds the SQL migration files applied by
// storage/postgres's golang-migrate wiring.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
