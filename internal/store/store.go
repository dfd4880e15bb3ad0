// Package store persists the household in SQLite. Lookups of a single record
// return (nil, nil) when it does not exist.
package store

import (
	"database/sql"
	"time"

	"github.com/dukerupert/fairshare/internal/database"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func formatTime(t time.Time) string {
	return t.UTC().Format(database.TimeLayout)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
