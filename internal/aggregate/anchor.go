package aggregate

import "github.com/aces-go/aces/internal/table"

// Anchor is one (subject, timestamp) point the tree evaluator is aggregating
// a window around. It need not correspond to any row of the predicate
// table — a temporal offset from a trigger row, for instance, almost never
// lands exactly on another row's timestamp.
type Anchor struct {
	Subject int64
	Time    table.NullTime
}

// subjectGroups maps each subject id to its contiguous row range of the
// predicate table.
func subjectGroups(f *table.Frame) map[int64]table.Group {
	out := make(map[int64]table.Group, len(f.Groups()))
	for _, g := range f.Groups() {
		out[g.Subject] = g
	}
	return out
}

// RowAnchors returns one Anchor per row of f, in row order — the anchor set
// for aggregating a window at every literal table row (spec §4.2/§4.3's
// base case, and the building block for offset subtraction).
func RowAnchors(f *table.Frame) []Anchor {
	out := make([]Anchor, f.Len())
	for i := 0; i < f.Len(); i++ {
		out[i] = Anchor{Subject: f.Subject[i], Time: f.Time[i]}
	}
	return out
}

func prefixSums(f *table.Frame) map[string][]int64 {
	n := f.Len()
	prefix := make(map[string][]int64, len(f.Columns))
	for _, c := range f.Columns {
		col := f.Col(c)
		p := make([]int64, n+1)
		for i, v := range col {
			p[i+1] = p[i] + v
		}
		prefix[c] = p
	}
	return prefix
}
