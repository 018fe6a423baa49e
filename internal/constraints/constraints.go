// Package constraints implements the per-window event-count filter (spec
// §4.4): drop rows whose predicate counts fall outside a declared inclusive
// [min, max] range.
package constraints

import (
	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/aggregate"
	"github.com/aces-go/aces/internal/table"
)

// AnyEventAlias is the pseudo-name that constraints and boundary
// expressions may use in place of the reserved _ANY_EVENT column.
const AnyEventAlias = "*"

// Range is an inclusive [Lo, Hi] bound; either side may be nil, meaning
// unconstrained on that side.
type Range struct {
	Lo, Hi *int64
}

func (r Range) allows(v int64) bool {
	if r.Lo != nil && v < *r.Lo {
		return false
	}
	if r.Hi != nil && v > *r.Hi {
		return false
	}
	return true
}

// Map is a window's constraint set: predicate name to allowed range.
type Map map[string]Range

// Validate rejects the reserved "_" name, which may never be constrained
// (spec §4.4).
func (m Map) Validate() error {
	if _, ok := m["_"]; ok {
		return acerr.New(acerr.ConfigInvalid, `"_" may not appear as a constrained predicate name`)
	}
	return nil
}

func resolve(name string) string {
	if name == AnyEventAlias {
		return table.ReservedAnyEvent
	}
	return name
}

// FilterResult keeps only the rows of res whose per-predicate sums satisfy
// every range in m, returning the filtered result and the original row
// indices that were kept (the tree evaluator needs the latter to re-align
// sibling anchors).
func FilterResult(res *aggregate.Result, m Map) (*aggregate.Result, []int) {
	if len(m) == 0 {
		idx := make([]int, res.Len())
		for i := range idx {
			idx[i] = i
		}
		return res, idx
	}
	var keep []int
	for i := 0; i < res.Len(); i++ {
		if rowSatisfies(res, i, m) {
			keep = append(keep, i)
		}
	}
	return selectResult(res, keep), keep
}

func rowSatisfies(res *aggregate.Result, i int, m Map) bool {
	for name, r := range m {
		col := res.Sums[resolve(name)]
		if col == nil {
			return false
		}
		if !r.allows(col[i]) {
			return false
		}
	}
	return true
}

func selectResult(res *aggregate.Result, idx []int) *aggregate.Result {
	out := &aggregate.Result{
		Subject: make([]int64, len(idx)),
		Time:    make([]table.NullTime, len(idx)),
		Start:   make([]table.NullTime, len(idx)),
		End:     make([]table.NullTime, len(idx)),
		Columns: res.Columns,
		Sums:    make(map[string][]int64, len(res.Columns)),
	}
	for _, c := range res.Columns {
		out.Sums[c] = make([]int64, len(idx))
	}
	for i, row := range idx {
		out.Subject[i] = res.Subject[row]
		out.Time[i] = res.Time[row]
		out.Start[i] = res.Start[row]
		out.End[i] = res.End[row]
		for _, c := range res.Columns {
			out.Sums[c][i] = res.Sums[c][row]
		}
	}
	return out
}

// FilterStaticSubjects applies a constraint map to each subject's static
// (null-timestamp) row once, up front, and returns the subset of the frame
// belonging to subjects that pass — the "join the static row into the event
// table and filter" step from spec §9's "Static predicates" design note,
// done as a subject-universe restriction rather than a literal join.
func FilterStaticSubjects(f *table.Frame, m Map) *table.Frame {
	if len(m) == 0 {
		return f
	}
	statics := f.StaticRows()
	allowed := make(map[int64]bool, len(statics))
	for subject, row := range statics {
		ok := true
		for name, r := range m {
			col := f.Col(resolve(name))
			if col == nil || !r.allows(col[row]) {
				ok = false
				break
			}
		}
		allowed[subject] = ok
	}
	return f.Filter(func(i int) bool {
		ok, seen := allowed[f.Subject[i]]
		return !seen || ok
	})
}
