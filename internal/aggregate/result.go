// Package aggregate implements the two columnar aggregation kernels: the
// fixed-duration temporal rolling window, and the event-bound window that
// tracks the nearest row satisfying a boolean boundary predicate.
package aggregate

import "github.com/aces-go/aces/internal/table"

// Result is one output row per anchor: the anchor's own (subject, time),
// the resolved window boundaries, and the per-predicate sums within that
// window.
type Result struct {
	Subject []int64
	Time    []table.NullTime // the anchoring row's own timestamp
	Start   []table.NullTime
	End     []table.NullTime
	Columns []string
	Sums    map[string][]int64
}

func newResult(n int, columns []string) *Result {
	sums := make(map[string][]int64, len(columns))
	for _, c := range columns {
		sums[c] = make([]int64, n)
	}
	return &Result{
		Subject: make([]int64, n),
		Time:    make([]table.NullTime, n),
		Start:   make([]table.NullTime, n),
		End:     make([]table.NullTime, n),
		Columns: columns,
		Sums:    sums,
	}
}

// newAnchoredResult allocates a Result aligned 1:1 with anchors, with
// Subject/Time copied in and Start/End/Sums left zero for the aggregator to
// fill.
func newAnchoredResult(anchors []Anchor, columns []string) *Result {
	out := newResult(len(anchors), columns)
	for i, a := range anchors {
		out.Subject[i] = a.Subject
		out.Time[i] = a.Time
	}
	return out
}

// Len returns the row count.
func (r *Result) Len() int { return len(r.Subject) }
