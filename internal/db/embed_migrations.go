package db

import "embed"

// MigrationFS embeds the SQL migrations for the users, sessions and verifications tables.
// Applied by internal/db/migrate from cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
