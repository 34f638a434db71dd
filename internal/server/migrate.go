package server

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaTables are the tables the embedded schema files must leave behind.
var schemaTables = []string{"items"}

// RunMigrations ensures the items schema. Every file uses CREATE ... IF NOT
// EXISTS, so it runs on each start and never touches existing rows; after
// the files are applied each table in schemaTables must be queryable.
func RunMigrations(db *sql.DB, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	// fs.Glob returns names in lexical order
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	for _, file := range files {
		stmt, err := migrationsFS.ReadFile(file)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(stmt)); err != nil {
			return fmt.Errorf("schema %s: %w", path.Base(file), err)
		}
		logger.Printf("schema: applied %s", path.Base(file))
	}

	for _, table := range schemaTables {
		if _, err := db.Exec(`SELECT 1 FROM ` + table + ` WHERE 1 = 0`); err != nil {
			return fmt.Errorf("schema: table %s not usable: %w", table, err)
		}
		logger.Printf("schema: table %s ready", table)
	}

	logger.Printf("database initialized")
	return nil
}
