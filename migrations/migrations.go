// Package migrations carries the SQL schema for the Postgres event sink.
// Migrations run with sql-migrate when the sink opens.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
