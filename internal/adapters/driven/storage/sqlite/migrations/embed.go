// Package migrations holds the schema of the index database.
package migrations

import "embed"

// FS holds the numbered NNN_name.up.sql and NNN_name.down.sql files applied
// in order by the store.
//
//go:embed *.sql
var FS embed.FS
