// Package sqlite is the cache store and source registry backed by sqlite.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jdholdren/curator/internal/curator"
)

// Ensure Repo implements the Repository interface
var _ curator.Repository = Repo{}

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}

// Open connects to the database file at path with WAL, a busy timeout and
// foreign keys enabled.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite",
		path,
	)
	dbx, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %s", err)
	}

	return dbx, nil
}
