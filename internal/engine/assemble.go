package engine

import (
	"fmt"
	"sort"

	"github.com/aces-go/aces/internal/table"
)

// Assemble flattens extracted rows into the result table.Frame shape
// (spec.md §3 "Result table (output)"): Frame.Time carries the trigger
// timestamp, and every retained window contributes int64 columns
// "<window>.start_micros" and "<window>.end_micros" plus one
// "<window>.<predicate>" column per predicate,
// since Frame only models flat int64 columns, not the nested struct columns
// spec.md describes. prediction_time and label (when present) become their
// own columns so every I/O backend can carry them without a special case.
func Assemble(rows []Row) *table.Frame {
	columns := resultColumns(rows)
	f := table.New(columns)
	f.Subject = make([]int64, len(rows))
	f.Time = make([]table.NullTime, len(rows))
	for _, c := range columns {
		f.Counts[c] = make([]int64, len(rows))
	}

	for i, r := range rows {
		f.Subject[i] = r.Subject
		f.Time[i] = r.Trigger
		if r.PredictionTime.Valid {
			f.Counts["prediction_time_micros"][i] = r.PredictionTime.Micros
		}
		if r.Label != nil {
			f.Counts["label"][i] = *r.Label
		}
		for name, w := range r.Windows {
			if w.Start.Valid {
				f.Counts[name+".start_micros"][i] = w.Start.Micros
			}
			if w.End.Valid {
				f.Counts[name+".end_micros"][i] = w.End.Micros
			}
			for pred, v := range w.Counts {
				f.Counts[colName(name, pred)][i] = v
			}
		}
	}
	return f
}

func colName(window, predicate string) string {
	return fmt.Sprintf("%s.%s", window, predicate)
}

// resultColumns derives a stable, deterministic column order by scanning
// every row for window/predicate names actually present, since the window
// set that survives extraction (and each window's predicate set) is only
// known once extraction has run.
func resultColumns(rows []Row) []string {
	seen := map[string]bool{}
	var columns []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}
	hasPrediction, hasLabel := false, false
	windowNames := map[string]bool{}
	predNames := map[string]bool{}
	for _, r := range rows {
		if r.PredictionTime.Valid {
			hasPrediction = true
		}
		if r.Label != nil {
			hasLabel = true
		}
		for name, w := range r.Windows {
			windowNames[name] = true
			for pred := range w.Counts {
				predNames[pred] = true
			}
		}
	}
	if hasPrediction {
		add("prediction_time_micros")
	}
	if hasLabel {
		add("label")
	}
	sortedWindows := make([]string, 0, len(windowNames))
	for name := range windowNames {
		sortedWindows = append(sortedWindows, name)
	}
	sort.Strings(sortedWindows)
	sortedPreds := make([]string, 0, len(predNames))
	for pred := range predNames {
		sortedPreds = append(sortedPreds, pred)
	}
	sort.Strings(sortedPreds)
	for _, name := range sortedWindows {
		add(name + ".start_micros")
		add(name + ".end_micros")
		for _, pred := range sortedPreds {
			add(colName(name, pred))
		}
	}
	return columns
}
