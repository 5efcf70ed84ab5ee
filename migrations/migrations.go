// Package migrations holds the PostgreSQL schema of the buffer log and the
// moderation ledger, applied by goose at startup or with --mode=migrate.
package migrations

import "embed"

// FS contains every *.sql migration, ordered by its timestamp prefix.
//
//go:embed *.sql
var FS embed.FS
