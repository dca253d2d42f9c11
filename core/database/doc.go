// Package database handles database connections and schema inspection.
//
// It wraps GORM to configure MySQL or SQLite connections from the
// application's configuration. SQLite is used for local runs and tests.
//
// # Schema Inspection
//
// GetTableColumns and RequireColumns verify that a table carries the
// columns a feature's model expects. Features use this at startup when
// auto-migration is disabled.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	err = database.RequireColumns(db, "characters", "id", "character_data")
package database
