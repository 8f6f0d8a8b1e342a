package persistence

import "embed"

// Migrations holds the golang-migrate source tree for the Postgres
// schema, embedded so cmd/migrate ships as a single binary with no
// external migrations directory to deploy alongside it.
//
//go:embed migrations/*.sql
var Migrations embed.FS
