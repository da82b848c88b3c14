package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the sqlite file backing the visit ledger for one logical
// operation. Callers own the handle and must Close it on every exit path;
// no long-lived connection is kept, so the file never holds a write lock
// between operations.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	// sqlite allows a single writer; a single desk operator never needs more.
	db.SetMaxOpenConns(1)
	return db, nil
}
