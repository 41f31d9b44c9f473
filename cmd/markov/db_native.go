//go:build !cgo_sqlite

package main

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// openDB opens the chain database with the pure-Go SQLite driver.
func openDB(dataSource string) (*sql.DB, error) {
	return sql.Open("sqlite", dataSource)
}
