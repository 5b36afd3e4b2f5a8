// Package db bundles the SQL migrations that mirror the hosted record
// contract, for running against a local Postgres.
package db

import "embed"

// MigrationsDir is the directory inside Migrations holding the goose files.
const MigrationsDir = "migrations"

//go:embed migrations/*.sql
var Migrations embed.FS
