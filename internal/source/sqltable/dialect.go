package sqltable

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/aces-go/aces/internal/acerr"
)

// Dialect names the supported database/sql drivers for OpenDB (SPEC_FULL.md
// §9): mysql and postgres are the two real network dialects; ramsql is
// registered separately by the package's own tests.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

// OpenDB opens a *sql.DB for d against dsn using whichever of the two network
// drivers d names; both are registered by this file's blank imports.
func OpenDB(d Dialect, dsn string) (*sql.DB, error) {
	switch d {
	case MySQL, Postgres:
		db, err := sql.Open(string(d), dsn)
		if err != nil {
			return nil, acerr.Wrap(acerr.ConfigInvalid, string(d), err)
		}
		return db, nil
	default:
		return nil, acerr.Newf(acerr.ConfigInvalid, string(d), "unsupported sql dialect")
	}
}
