package engine

import "github.com/aces-go/aces/internal/table"

// WindowSummary is one window's resolved span and per-predicate event
// counts for a single extracted row (spec §4.7).
type WindowSummary struct {
	Start, End table.NullTime
	Counts     map[string]int64
}

// Row is one surviving extraction: the subject, the trigger timestamp that
// seeded it, every retained window's summary keyed by window name, the
// surfaced label count (if any window declared one), and the prediction
// timestamp (if any window was marked index_timestamp).
type Row struct {
	Subject        int64
	Trigger        table.NullTime
	Windows        map[string]WindowSummary
	Label          *int64
	PredictionTime table.NullTime
}
