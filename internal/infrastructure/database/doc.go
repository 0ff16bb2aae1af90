// Package database opens the SQLite file that holds the fleet's shadow
// records and audit trail, and applies its schema migrations.
//
// A single connection is kept open. The shadow store's read-compare-write
// transactions rely on SQLite serialising writers through it; WAL mode lets
// API reads proceed while reports are written.
//
// Usage:
//
//	db, err := database.OpenMigrated(ctx, database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return fmt.Errorf("opening database: %w", err)
//	}
//	defer db.Close()
//
// # Migrations
//
// Migration files are named YYYYMMDD_HHMMSS_name.up.sql with an optional
// .down.sql partner and are embedded by the migrations package. Each one
// runs in its own transaction and is recorded in schema_migrations with a
// BLAKE3 checksum of its up SQL. Editing a migration after it has been
// applied makes Migrate fail with ErrMigrationModified; add a new
// migration instead.
//
// Tables are STRICT and every query is parameterised. The database file
// is created with mode 0600.
package database
