// Package meds shims an extraction result into the MEDS (Medical Event Data
// Standard) label-table schema (SPEC_FULL.md §11): subject_id, prediction
// time, and a boolean label, with every other window summary dropped — a
// MEDS label table carries only the three columns a downstream model
// training pipeline consumes.
package meds

import (
	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/engine"
)

// LabelRow is the MEDS label schema this repository targets. The project has
// no Arrow binding, so this struct plays the role MEDS normally gives an
// Arrow schema, and is written out via the same parquet-go dependency
// internal/source/parquet uses.
type LabelRow struct {
	SubjectID      int64 `parquet:"name=subject_id, type=INT64"`
	PredictionTime int64 `parquet:"name=prediction_time, type=INT64"`
	BooleanValue   bool  `parquet:"name=boolean_value, type=BOOLEAN"`
}

// FromRows renames and drops columns to convert extracted rows into MEDS
// label rows: a row whose task declared no label window, or whose index
// timestamp never resolved, has nothing a label table can record and is
// skipped.
func FromRows(rows []engine.Row) ([]LabelRow, error) {
	out := make([]LabelRow, 0, len(rows))
	for _, r := range rows {
		if r.Label == nil || !r.PredictionTime.Valid {
			continue
		}
		if *r.Label != 0 && *r.Label != 1 {
			return nil, acerr.Newf(acerr.DataShape, "label", "label count %d is not boolean (0 or 1)", *r.Label)
		}
		out = append(out, LabelRow{
			SubjectID:      r.Subject,
			PredictionTime: r.PredictionTime.Micros,
			BooleanValue:   *r.Label != 0,
		})
	}
	return out, nil
}
