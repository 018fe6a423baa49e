// Package bigtable loads a predicate table keyed by subject_id from Google
// Cloud Bigtable, one row per subject with predicate columns packed as
// qualifier cells in a single column family — the large-scale,
// single-subject-lookup-optimized path the sharding orchestrator prefers
// when a shard is a subject_id range (SPEC_FULL.md §9).
package bigtable

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"

	"cloud.google.com/go/bigtable"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/table"
)

const family = "predicates"

// Source reads a predicate table from a Bigtable table whose row key is the
// subject_id (zero-padded decimal, so lexicographic range scans match
// numeric subject_id ranges) and whose qualifiers are "<timestamp_micros>/
// <column>", one cell per predicate value.
type Source struct {
	Client  *bigtable.Client
	Table   string
	Columns []string // predicate column names, in Frame order
}

// ReadPredicateTable implements source.PredicateTableSource, reading every
// row of the table; ReadShard reads a subject range.
func (s *Source) ReadPredicateTable(ctx context.Context) (*table.Frame, error) {
	return s.readRange(ctx, bigtable.InfiniteRange(""))
}

// ReadShard reads only subjects in [startSubject, endSubject), the unit the
// sharding orchestrator assigns per worker.
func (s *Source) ReadShard(ctx context.Context, startSubject, endSubject int64) (*table.Frame, error) {
	return s.readRange(ctx, bigtable.NewRange(rowKey(startSubject), rowKey(endSubject)))
}

func (s *Source) readRange(ctx context.Context, rr bigtable.RowRange) (*table.Frame, error) {
	tbl := s.Client.Open(s.Table)
	f := table.New(s.Columns)

	var rowErr error
	err := tbl.ReadRows(ctx, rr, func(row bigtable.Row) bool {
		subject, ok := parseRowKey(row.Key())
		if !ok {
			return true
		}
		byTime := map[int64]map[string]int64{}
		for _, cell := range row[family] {
			micros, col, ok := parseQualifier(cell.Column)
			if !ok {
				continue
			}
			if byTime[micros] == nil {
				byTime[micros] = map[string]int64{}
			}
			byTime[micros][col] = bytesToInt64(cell.Value)
		}
		for micros, cols := range byTime {
			f.Subject = append(f.Subject, subject)
			f.Time = append(f.Time, table.NullTime{Micros: micros, Valid: true})
			for _, c := range s.Columns {
				f.Counts[c] = append(f.Counts[c], cols[c])
			}
		}
		return true
	})
	if err != nil {
		return nil, acerr.Wrap(acerr.DataShape, s.Table, err)
	}
	if rowErr != nil {
		return nil, rowErr
	}
	f.SortBySubjectTime()
	return f, nil
}

func rowKey(subject int64) string {
	return fmt.Sprintf("%019d", subject)
}

func parseRowKey(key string) (int64, bool) {
	v, err := strconv.ParseInt(key, 10, 64)
	return v, err == nil
}

// parseQualifier splits a cell's "family:micros/column" qualifier back into
// its timestamp and predicate-column parts.
func parseQualifier(col string) (micros int64, name string, ok bool) {
	ci := -1
	for i := 0; i < len(col); i++ {
		if col[i] == ':' {
			ci = i
			break
		}
	}
	if ci < 0 || ci+1 >= len(col) {
		return 0, "", false
	}
	rest := col[ci+1:]
	for j := 0; j < len(rest); j++ {
		if rest[j] == '/' {
			micros, err := strconv.ParseInt(rest[:j], 10, 64)
			if err != nil {
				return 0, "", false
			}
			return micros, rest[j+1:], true
		}
	}
	return 0, "", false
}

func bytesToInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
