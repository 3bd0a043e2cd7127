// Package db embeds the schema migrations applied by internal/store.
package db

import "embed"

//go:embed *.sql
var Migrations embed.FS
