package main

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"

	"stockroom/internal/server"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		log.Fatal("DB_PATH is required")
	}
	if err := run(dbPath, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run prints the tables of the database at dbPath and, when the items
// table exists, its row count.
func run(dbPath string, w io.Writer) error {
	db, err := server.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("OpenDB failed: %w", err)
	}
	defer db.Close()

	tables, err := tableNames(db, server.DriverFor(dbPath))
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	fmt.Fprintln(w, "Tables:")
	hasItems := false
	for _, name := range tables {
		fmt.Fprintln(w, " -", name)
		if name == "items" {
			hasItems = true
		}
	}
	if !hasItems {
		fmt.Fprintln(w, "Items: (no items table)")
		return nil
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	fmt.Fprintln(w, "Items:", n)
	return nil
}

func tableNames(db *sql.DB, driver string) ([]string, error) {
	q := `SELECT name FROM sqlite_master WHERE type='table' ORDER BY name`
	if driver == server.DriverPostgres {
		q = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name`
	}
	rows, err := db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
