// Package migrations embeds the schema scripts of the SQL store sink.
package migrations

import "embed"

// PostgresFS holds goose migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// OracleFS holds a single script whose statements are separated by '/'.
//
//go:embed oracle/*.sql
var OracleFS embed.FS
