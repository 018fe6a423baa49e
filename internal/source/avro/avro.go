// Package avro reads and writes predicate/result tables as Avro OCF
// (object container format) files, the schema-evolution-friendly
// alternative to parquet that SPEC_FULL.md §9 calls for when a predicate
// table is exchanged between cohorts whose predicate sets drift over time.
package avro

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/linkedin/goavro"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/table"
)

// Source reads/writes a predicate table at Path, one Avro OCF file.
type Source struct {
	Path string
}

// ReadPredicateTable implements source.PredicateTableSource.
func (s *Source) ReadPredicateTable(ctx context.Context) (*table.Frame, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, acerr.Wrap(acerr.DataShape, s.Path, err)
	}
	defer f.Close()

	r, err := goavro.NewOCFReader(f)
	if err != nil {
		return nil, acerr.Wrap(acerr.DataShape, s.Path, err)
	}

	var subjects []int64
	var times []table.NullTime
	counts := map[string][]int64{}
	var columns []string
	seenCol := map[string]bool{}

	for r.Scan() {
		rec, err := r.Read()
		if err != nil {
			return nil, acerr.Wrap(acerr.DataShape, s.Path, err)
		}
		m, ok := rec.(map[string]any)
		if !ok {
			return nil, acerr.New(acerr.DataShape, "avro record is not a map")
		}
		subjects = append(subjects, asInt(m["subject_id"]))
		var t table.NullTime
		if raw, ok := m["timestamp_micros"]; ok {
			if micros, ok2 := unwrapUnion(raw); ok2 {
				t = table.NullTime{Micros: micros, Valid: true}
			}
		}
		times = append(times, t)
		for k, v := range m {
			if k == "subject_id" || k == "timestamp_micros" {
				continue
			}
			if !seenCol[k] {
				seenCol[k] = true
				columns = append(columns, k)
				counts[k] = make([]int64, len(subjects)-1)
			}
			counts[k] = append(counts[k], asInt(v))
		}
		for _, c := range columns {
			if len(counts[c]) < len(subjects) {
				counts[c] = append(counts[c], 0)
			}
		}
	}

	out := table.New(columns)
	out.Subject = subjects
	out.Time = times
	out.Counts = counts
	out.SortBySubjectTime()
	return out, nil
}

// WriteResultTable implements source.ResultTableSink.
func (s *Source) WriteResultTable(ctx context.Context, result *table.Frame) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return acerr.Wrap(acerr.DataShape, s.Path, err)
	}
	defer f.Close()

	codec, err := goavro.NewCodec(avroSchema(result.Columns))
	if err != nil {
		return acerr.Wrap(acerr.DataShape, s.Path, err)
	}
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: f, Codec: codec})
	if err != nil {
		return acerr.Wrap(acerr.DataShape, s.Path, err)
	}

	for i := 0; i < result.Len(); i++ {
		m := map[string]any{"subject_id": result.Subject[i]}
		if result.Time[i].Valid {
			m["timestamp_micros"] = goavro.Union("long", result.Time[i].Micros)
		} else {
			m["timestamp_micros"] = goavro.Union("null", nil)
		}
		for _, c := range result.Columns {
			m[c] = result.Counts[c][i]
		}
		if err := w.Append([]any{m}); err != nil {
			return acerr.Wrap(acerr.DataShape, s.Path, err)
		}
	}
	return nil
}

func avroSchema(columns []string) string {
	var b strings.Builder
	b.WriteString(`{"type":"record","name":"predicate_row","fields":[`)
	b.WriteString(`{"name":"subject_id","type":"long"},`)
	b.WriteString(`{"name":"timestamp_micros","type":["null","long"]}`)
	for _, c := range columns {
		fmt.Fprintf(&b, `,{"name":"%s","type":"long"}`, c)
	}
	b.WriteString(`]}`)
	return b.String()
}

func unwrapUnion(v any) (int64, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	raw, ok := m["long"]
	if !ok {
		return 0, false
	}
	return asInt(raw), true
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
