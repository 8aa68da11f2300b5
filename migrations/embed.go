// Package migrations embeds the schema migration files so the binary can
// bootstrap a fresh database without shipping SQL alongside it.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
