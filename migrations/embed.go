// Package migrations holds the SQL schema applied by cmd/migrate.
package migrations

import _ "embed"

//go:embed 001_initial_schema.up.sql
var InitialSchema string

// Tables lists every application table in drop order (children first).
var Tables = []string{
	"watch_history",
	"favorites",
	"ratings",
	"comments",
	"episodes",
	"anime",
	"admins",
	"users",
}
