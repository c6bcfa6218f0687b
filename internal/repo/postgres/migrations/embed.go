// Package migrations embeds the goose SQL migration files for the
// lair-chat-server schema.
package migrations

import "embed"

// FS holds the embedded .sql migration files, read by goose.SetBaseFS.
//
//go:embed *.sql
var FS embed.FS
