// Package table implements the columnar predicate-table representation the
// aggregation kernels operate over: a struct-of-slices analogue of the
// Polars DataFrame used by the Python implementation this engine descends
// from, sized for the "hundreds of millions of rows" the spec calls for
// without needing a full dataframe library in the dependency graph.
package table

import (
	"sort"
	"time"

	"github.com/aces-go/aces/internal/acerr"
)

// Reserved predicate-column names from spec.md §3: _ANY_EVENT is 1 on any
// row with a real timestamp, _RECORD_START/_RECORD_END are 1 on each
// subject's earliest/latest real-timestamp row.
const (
	ReservedAnyEvent    = "_ANY_EVENT"
	ReservedRecordStart = "_RECORD_START"
	ReservedRecordEnd   = "_RECORD_END"
)

// Microsecond names the uniform timestamp resolution: every stored
// timestamp is an integer count of microseconds. Picking one unit avoids
// the mixed-granularity drift the Python implementation's ad hoc
// microsecond nudges were prone to (see SPEC_FULL.md open question (b)).
const Microsecond = time.Microsecond

// NullTime represents a timestamp that may be absent: absent means the row
// is a static, subject-scoped fact (spec.md's "null timestamp" rows), not
// the zero time. NullTime is comparable, so it can be used directly as (part
// of) a map key.
type NullTime struct {
	Micros int64
	Valid  bool
}

// Of builds a valid NullTime from a time.Time, truncated to microseconds.
func Of(t time.Time) NullTime {
	return NullTime{Micros: t.UnixMicro(), Valid: true}
}

// Null is the canonical absent timestamp.
var Null = NullTime{}

// Time converts back to a time.Time in UTC. Panics if !Valid; callers must
// check Valid first, mirroring how the engine never lets a null timestamp
// silently participate in a comparison (spec.md's sentinel-timestamp note).
func (n NullTime) Time() time.Time {
	if !n.Valid {
		panic("table: Time() called on a null NullTime")
	}
	return time.UnixMicro(n.Micros).UTC()
}

// Add returns n shifted by d, or Null if n is itself null.
func (n NullTime) Add(d time.Duration) NullTime {
	if !n.Valid {
		return n
	}
	return NullTime{Micros: n.Micros + d.Microseconds(), Valid: true}
}

// Before reports whether n occurs strictly before o. Null times compare as
// never ordered against anything, including each other.
func (n NullTime) Before(o NullTime) bool {
	return n.Valid && o.Valid && n.Micros < o.Micros
}

// Equal reports exact timestamp equality; two Null values are not Equal,
// matching the "never propagate [null] as a match" invariant.
func (n NullTime) Equal(o NullTime) bool {
	return n.Valid && o.Valid && n.Micros == o.Micros
}

// Frame is the predicate table: one row per (subject_id, timestamp) event,
// plus one integer count per predicate column. Columns preserves
// declaration order so result assembly is deterministic.
type Frame struct {
	Subject []int64
	Time    []NullTime
	Columns []string
	Counts  map[string][]int64
}

// New builds an empty frame with the given column order.
func New(columns []string) *Frame {
	cols := make([]string, len(columns))
	copy(cols, columns)
	counts := make(map[string][]int64, len(columns))
	for _, c := range cols {
		counts[c] = nil
	}
	return &Frame{Columns: cols, Counts: counts}
}

// Len returns the row count.
func (f *Frame) Len() int { return len(f.Subject) }

// Col returns the backing slice for column name, or nil if absent.
func (f *Frame) Col(name string) []int64 { return f.Counts[name] }

// HasCol reports whether name is a declared predicate column.
func (f *Frame) HasCol(name string) bool {
	_, ok := f.Counts[name]
	return ok
}

// AddColumn appends a computed column to the frame in place, e.g. a
// derived predicate's materialized values. values must already be aligned
// with the frame's existing rows. Re-adding an existing column name
// replaces its values without duplicating the Columns entry.
func (f *Frame) AddColumn(name string, values []int64) {
	if !f.HasCol(name) {
		f.Columns = append(f.Columns, name)
	}
	f.Counts[name] = values
}

// Validate enforces the DataShape invariants from spec.md §7: sorted,
// non-null-unique timestamps per subject, and rectangular columns.
func (f *Frame) Validate() error {
	n := f.Len()
	for _, c := range f.Columns {
		if len(f.Counts[c]) != n {
			return acerr.Newf(acerr.DataShape, c, "column has %d rows, expected %d", len(f.Counts[c]), n)
		}
	}
	if len(f.Time) != n {
		return acerr.New(acerr.DataShape, "timestamp column has %d rows, expected %d", len(f.Time), n)
	}
	seen := make(map[int64]NullTime, n)
	for i := 0; i < n; i++ {
		s, t := f.Subject[i], f.Time[i]
		if i > 0 {
			ps, pt := f.Subject[i-1], f.Time[i-1]
			if s < ps || (s == ps && pt.Valid && t.Valid && t.Micros < pt.Micros) {
				return acerr.New(acerr.DataShape, "predicate table is not sorted by (subject_id, timestamp) at row %d", i)
			}
		}
		if t.Valid {
			if prev, ok := seen[s]; ok && prev.Equal(t) {
				return acerr.New(acerr.DataShape, "duplicate (subject_id, timestamp) pair for subject %d", s)
			}
			seen[s] = t
		}
	}
	return nil
}

// Group describes the row range [Start, End) for one subject, assuming the
// frame is sorted by (subject_id, timestamp).
type Group struct {
	Subject    int64
	Start, End int
}

// Groups partitions rows into per-subject ranges in first-seen order.
func (f *Frame) Groups() []Group {
	var groups []Group
	n := f.Len()
	for i := 0; i < n; {
		j := i + 1
		for j < n && f.Subject[j] == f.Subject[i] {
			j++
		}
		groups = append(groups, Group{Subject: f.Subject[i], Start: i, End: j})
		i = j
	}
	return groups
}

// Select returns a new frame containing only the given row indices, in the
// given order.
func (f *Frame) Select(idx []int) *Frame {
	out := New(f.Columns)
	out.Subject = make([]int64, len(idx))
	out.Time = make([]NullTime, len(idx))
	for _, c := range f.Columns {
		out.Counts[c] = make([]int64, len(idx))
	}
	for i, row := range idx {
		out.Subject[i] = f.Subject[row]
		out.Time[i] = f.Time[row]
		for _, c := range f.Columns {
			out.Counts[c][i] = f.Counts[c][row]
		}
	}
	return out
}

// Filter returns a new frame keeping only rows for which keep(i) is true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	var idx []int
	for i := 0; i < f.Len(); i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.Select(idx)
}

// SortBySubjectTime sorts rows in place by (subject_id, timestamp), null
// timestamps first, matching the predicate table's required ordering.
func (f *Frame) SortBySubjectTime() {
	n := f.Len()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if f.Subject[ia] != f.Subject[ib] {
			return f.Subject[ia] < f.Subject[ib]
		}
		ta, tb := f.Time[ia], f.Time[ib]
		if ta.Valid != tb.Valid {
			return !ta.Valid
		}
		if !ta.Valid {
			return false
		}
		return ta.Micros < tb.Micros
	})
	*f = *f.Select(idx)
}

// StaticRows returns, for each subject, the row index of its null-timestamp
// static row, if any.
func (f *Frame) StaticRows() map[int64]int {
	out := map[int64]int{}
	for i := 0; i < f.Len(); i++ {
		if !f.Time[i].Valid {
			out[f.Subject[i]] = i
		}
	}
	return out
}

// RecordBounds returns, for each subject, the min and max real (non-null)
// timestamp observed, used to resolve _RECORD_START/_RECORD_END without
// storing them as columns (spec.md §9 design note).
func (f *Frame) RecordBounds() map[int64][2]NullTime {
	out := map[int64][2]NullTime{}
	for i := 0; i < f.Len(); i++ {
		t := f.Time[i]
		if !t.Valid {
			continue
		}
		s := f.Subject[i]
		if cur, ok := out[s]; ok {
			if t.Micros < cur[0].Micros {
				cur[0] = t
			}
			if t.Micros > cur[1].Micros {
				cur[1] = t
			}
			out[s] = cur
		} else {
			out[s] = [2]NullTime{t, t}
		}
	}
	return out
}
