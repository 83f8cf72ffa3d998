// Package migrations embeds the SQL migration files for the places, visits
// and fixes tables so the goose programmatic API can apply them without a
// filesystem path.
package migrations

import "embed"

// FS holds the *.sql migration files, for goose.UpFS / goose.DownToFS.
//
//go:embed *.sql
var FS embed.FS
