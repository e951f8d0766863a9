// Package migrations embeds the SQL migrations for the application database.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var sqlFS embed.FS

// FS contains the migration files in lexical order.
var FS fs.FS = sqlFS
