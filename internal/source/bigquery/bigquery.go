// Package bigquery loads and writes predicate/result tables against Google
// BigQuery, the sharding orchestrator's cloud-native path (SPEC_FULL.md §9).
package bigquery

import (
	"context"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/table"
)

// Source reads/writes a predicate table at Project.Dataset.Table.
type Source struct {
	Client  *bigquery.Client
	Dataset string
	Table   string
	Columns []string // predicate column names, in Frame order
}

// predicateRow is the BigQuery row shape: a fixed subject/timestamp pair plus
// a value map for the variable predicate-column set.
type predicateRow struct {
	SubjectID        int64                `bigquery:"subject_id"`
	TimestampMicros  bigquery.NullInt64   `bigquery:"timestamp_micros"`
	Values           map[string]bigquery.Value
}

// Load implements the bigquery.ValueLoader interface so a dynamic column set
// can be scanned without a fixed struct per task.
func (r *predicateRow) Load(values []bigquery.Value, schema bigquery.Schema) error {
	r.Values = make(map[string]bigquery.Value, len(schema))
	for i, f := range schema {
		switch f.Name {
		case "subject_id":
			if v, ok := values[i].(int64); ok {
				r.SubjectID = v
			}
		case "timestamp_micros":
			if values[i] != nil {
				if v, ok := values[i].(int64); ok {
					r.TimestampMicros = bigquery.NullInt64{Int64: v, Valid: true}
				}
			}
		default:
			r.Values[f.Name] = values[i]
		}
	}
	return nil
}

// ReadPredicateTable implements source.PredicateTableSource.
func (s *Source) ReadPredicateTable(ctx context.Context) (*table.Frame, error) {
	q := s.Client.Query(
		"SELECT * FROM `" + s.Dataset + "." + s.Table + "` ORDER BY subject_id, timestamp_micros",
	)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, acerr.Wrap(acerr.DataShape, s.Table, err)
	}

	f := table.New(s.Columns)
	for {
		var row predicateRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, acerr.Wrap(acerr.DataShape, s.Table, err)
		}
		f.Subject = append(f.Subject, row.SubjectID)
		if row.TimestampMicros.Valid {
			f.Time = append(f.Time, table.NullTime{Micros: row.TimestampMicros.Int64, Valid: true})
		} else {
			f.Time = append(f.Time, table.Null)
		}
		for _, c := range s.Columns {
			v, _ := row.Values[c].(int64)
			f.Counts[c] = append(f.Counts[c], v)
		}
	}
	return f, nil
}

// resultRow implements bigquery.ValueSaver directly over a plain map, since
// the result table's predicate-column set varies per task and can't be
// expressed as one fixed Go struct's field tags.
type resultRow map[string]bigquery.Value

func (r resultRow) Save() (map[string]bigquery.Value, string, error) {
	return r, "", nil
}

// WriteResultTable implements source.ResultTableSink, streaming rows via the
// managed inserter.
func (s *Source) WriteResultTable(ctx context.Context, result *table.Frame) error {
	inserter := s.Client.Dataset(s.Dataset).Table(s.Table).Inserter()
	rows := make([]*resultRow, 0, result.Len())
	for i := 0; i < result.Len(); i++ {
		row := resultRow{"subject_id": result.Subject[i]}
		if result.Time[i].Valid {
			row["timestamp_micros"] = result.Time[i].Micros
		}
		for _, c := range result.Columns {
			row[c] = result.Counts[c][i]
		}
		rows = append(rows, &row)
	}
	if err := inserter.Put(ctx, rows); err != nil {
		return acerr.Wrap(acerr.DataShape, s.Table, err)
	}
	return nil
}
