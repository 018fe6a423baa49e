package sqltable

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/proullon/ramsql/driver"
	"github.com/stretchr/testify/require"

	"github.com/aces-go/aces/internal/table"
)

func openRamSQL(t *testing.T, name string) *sql.DB {
	t.Helper()
	db, err := sql.Open("ramsql", name)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE predicates (
		subject_id BIGINT,
		timestamp_micros BIGINT,
		admission BIGINT,
		death BIGINT
	)`)
	require.NoError(t, err)
	return db
}

func TestSourceRoundTrip(t *testing.T) {
	db := openRamSQL(t, "roundtrip")
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO predicates (subject_id, timestamp_micros, admission, death) VALUES (?, ?, ?, ?)`, 1, 1000, 1, 0)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO predicates (subject_id, timestamp_micros, admission, death) VALUES (?, ?, ?, ?)`, 1, 2000, 0, 1)
	require.NoError(t, err)

	src := &Source{DB: db, Table: "predicates", Columns: []string{"admission", "death"}}
	frame, err := src.ReadPredicateTable(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, frame.Len())
	require.Equal(t, []int64{1, 1}, frame.Subject)
	require.Equal(t, int64(1), frame.Counts["admission"][0])
	require.Equal(t, int64(1), frame.Counts["death"][1])
}

func TestWriteResultTable(t *testing.T) {
	db := openRamSQL(t, "writeback")
	ctx := context.Background()

	result := table.New([]string{"admission", "death"})
	result.Subject = []int64{7}
	result.Time = []table.NullTime{{Micros: 5000, Valid: true}}
	result.Counts["admission"] = []int64{2}
	result.Counts["death"] = []int64{0}

	src := &Source{DB: db, Table: "predicates", Columns: []string{"admission", "death"}}
	require.NoError(t, src.WriteResultTable(ctx, result))

	row := db.QueryRow(`SELECT subject_id, admission, death FROM predicates WHERE subject_id = ?`, 7)
	var subject, admission, death int64
	require.NoError(t, row.Scan(&subject, &admission, &death))
	require.Equal(t, int64(7), subject)
	require.Equal(t, int64(2), admission)
	require.Equal(t, int64(0), death)
}
