// Package parquet reads and writes predicate/result tables as Apache
// Parquet files, the primary on-disk format (SPEC_FULL.md §9): a columnar
// file format matches the columnar table.Frame model directly.
package parquet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	localsource "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/table"
)

// row is the JSON shape one predicate-table row takes on the wire: a fixed
// subject/timestamp pair plus one int64 field per predicate column. Parquet
// columns vary per task, so the schema is built at runtime from Frame.Columns
// rather than a fixed struct.
type row map[string]any

// Source reads/writes a predicate table at Path, one parquet row group file.
type Source struct {
	Path string
}

// ReadPredicateTable implements source.PredicateTableSource.
func (s *Source) ReadPredicateTable(ctx context.Context) (*table.Frame, error) {
	fr, err := localsource.NewLocalFileReader(s.Path)
	if err != nil {
		return nil, acerr.Wrap(acerr.DataShape, s.Path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 4)
	if err != nil {
		return nil, acerr.Wrap(acerr.DataShape, s.Path, err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	raw, err := pr.ReadByNumber(n)
	if err != nil {
		return nil, acerr.Wrap(acerr.DataShape, s.Path, err)
	}

	columns := schemaColumns(pr.SchemaHandler.ValueColumns)
	f := table.New(columns)
	f.Subject = make([]int64, n)
	f.Time = make([]table.NullTime, n)
	for _, c := range columns {
		f.Counts[c] = make([]int64, n)
	}

	for i, item := range raw {
		buf, err := json.Marshal(item)
		if err != nil {
			return nil, acerr.Wrap(acerr.DataShape, s.Path, err)
		}
		var r row
		if err := json.Unmarshal(buf, &r); err != nil {
			return nil, acerr.Wrap(acerr.DataShape, s.Path, err)
		}
		f.Subject[i] = int64(asFloat(r["subject_id"]))
		if micros, ok := r["timestamp_micros"]; ok && micros != nil {
			f.Time[i] = table.NullTime{Micros: int64(asFloat(micros)), Valid: true}
		}
		for _, c := range columns {
			f.Counts[c][i] = int64(asFloat(r[c]))
		}
	}
	f.SortBySubjectTime()
	return f, nil
}

// WriteResultTable implements source.ResultTableSink.
func (s *Source) WriteResultTable(ctx context.Context, result *table.Frame) error {
	fw, err := localsource.NewLocalFileWriter(s.Path)
	if err != nil {
		return acerr.Wrap(acerr.DataShape, s.Path, err)
	}
	defer fw.Close()

	pw, err := writer.NewJSONWriter(jsonSchema(result.Columns), fw, 4)
	if err != nil {
		return acerr.Wrap(acerr.DataShape, s.Path, err)
	}
	for i := 0; i < result.Len(); i++ {
		r := row{"subject_id": result.Subject[i]}
		if result.Time[i].Valid {
			r["timestamp_micros"] = result.Time[i].Micros
		}
		for _, c := range result.Columns {
			r[c] = result.Counts[c][i]
		}
		buf, err := json.Marshal(r)
		if err != nil {
			return acerr.Wrap(acerr.DataShape, s.Path, err)
		}
		if err := pw.Write(string(buf)); err != nil {
			return acerr.Wrap(acerr.DataShape, s.Path, err)
		}
	}
	return pw.WriteStop()
}

// jsonSchema builds the parquet-go JSON schema string for a predicate
// table with the given predicate columns, since the column set varies per
// task and can't be expressed as a fixed Go struct's tags.
func jsonSchema(columns []string) string {
	var b strings.Builder
	b.WriteString(`{"Tag":"name=row, repetitiontype=REQUIRED","Fields":[`)
	b.WriteString(`{"Tag":"name=subject_id, type=INT64, repetitiontype=REQUIRED"},`)
	b.WriteString(`{"Tag":"name=timestamp_micros, type=INT64, repetitiontype=OPTIONAL"}`)
	for _, c := range columns {
		fmt.Fprintf(&b, `,{"Tag":"name=%s, type=INT64, repetitiontype=REQUIRED"}`, c)
	}
	b.WriteString(`]}`)
	return b.String()
}

func schemaColumns(valueColumns []string) []string {
	var out []string
	for _, c := range valueColumns {
		name := c
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
		if name == "subject_id" || name == "timestamp_micros" {
			continue
		}
		out = append(out, name)
	}
	return out
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}
