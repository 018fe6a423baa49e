// Package sqltable reads and writes predicate/result tables via
// database/sql, one row per (subject_id, timestamp) with one column per
// predicate, against whichever dialect the caller's *sql.DB was opened
// with (SPEC_FULL.md §9).
package sqltable

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/table"
)

// Source reads/writes a predicate table in Table via DB, one row per
// (subject_id, timestamp), with predicate columns named after Frame.Columns.
type Source struct {
	DB      *sql.DB
	Table   string
	Columns []string // predicate column names, in Frame order
}

// ReadPredicateTable implements source.PredicateTableSource.
func (s *Source) ReadPredicateTable(ctx context.Context) (*table.Frame, error) {
	cols := append([]string{"subject_id", "timestamp_micros"}, s.Columns...)
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY subject_id, timestamp_micros", strings.Join(cols, ", "), s.Table)
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, acerr.Wrap(acerr.DataShape, s.Table, err)
	}
	defer rows.Close()

	f := table.New(s.Columns)
	for rows.Next() {
		var subject int64
		var ts sql.NullInt64
		dest := make([]any, 2+len(s.Columns))
		dest[0], dest[1] = &subject, &ts
		vals := make([]int64, len(s.Columns))
		for i := range vals {
			dest[2+i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, acerr.Wrap(acerr.DataShape, s.Table, err)
		}
		f.Subject = append(f.Subject, subject)
		if ts.Valid {
			f.Time = append(f.Time, table.NullTime{Micros: ts.Int64, Valid: true})
		} else {
			f.Time = append(f.Time, table.Null)
		}
		for i, c := range s.Columns {
			f.Counts[c] = append(f.Counts[c], vals[i])
		}
	}
	if err := rows.Err(); err != nil {
		return nil, acerr.Wrap(acerr.DataShape, s.Table, err)
	}
	return f, nil
}

// WriteResultTable implements source.ResultTableSink. It deletes every
// existing row of Table and then inserts the result rows, in one transaction.
func (s *Source) WriteResultTable(ctx context.Context, result *table.Frame) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return acerr.Wrap(acerr.DataShape, s.Table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.Table)); err != nil {
		return acerr.Wrap(acerr.DataShape, s.Table, err)
	}

	cols := append([]string{"subject_id", "timestamp_micros"}, result.Columns...)
	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return acerr.Wrap(acerr.DataShape, s.Table, err)
	}
	defer stmt.Close()

	for i := 0; i < result.Len(); i++ {
		args := make([]any, 0, len(cols))
		args = append(args, result.Subject[i])
		if result.Time[i].Valid {
			args = append(args, result.Time[i].Micros)
		} else {
			args = append(args, nil)
		}
		for _, c := range result.Columns {
			args = append(args, result.Counts[c][i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return acerr.Wrap(acerr.DataShape, s.Table, err)
		}
	}
	return tx.Commit()
}
