package db

import "embed"

// EmbedMigrations holds the history schema migrations.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
