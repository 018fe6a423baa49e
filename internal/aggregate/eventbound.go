package aggregate

import (
	"sort"
	"time"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/bounds"
	"github.com/aces-go/aces/internal/table"
)

// EventBound implements the event-bound aggregator (spec §4.3): for each
// anchor, it finds the nearest row (per subject, in the direction given by
// b.Mode) on which the boundary column is non-zero, and sums every
// predicate column over the closed-as-specified interval between them.
//
// The Python implementation this engine descends from builds this by
// interleaving synthetic "virtual" boundary rows into the real table and
// forward/backward-filling a cumulative sum across them — a trick suited to
// a vectorized dataframe runtime. Go has no such columnar join primitive to
// exploit, so this re-expresses the same cumsum-and-nearest-boundary idea
// as a direct per-subject binary search: one inclusive prefix sum per
// predicate column (as in Temporal), plus a sorted list of boundary-row
// timestamps per subject that each anchor searches against in O(log n).
//
// anchors must be sorted by (subject, time), same as Temporal.
func EventBound(f *table.Frame, boundaryCol string, anchors []Anchor, b bounds.EventBound) (*Result, error) {
	if b.Mode != bounds.ModeRowToBound && b.Mode != bounds.ModeBoundToRow {
		return nil, acerr.New(acerr.ConfigInvalid, "event bound mode %q is not row_to_bound or bound_to_row", b.Mode)
	}
	switch b.Closure {
	case bounds.ClosureBoth, bounds.ClosureLeft, bounds.ClosureRight, bounds.ClosureNone:
	default:
		return nil, acerr.New(acerr.ConfigInvalid, "event bound closure %q is not both/left/right/none", b.Closure)
	}

	out := newAnchoredResult(anchors, f.Columns)
	boundaryIsSet := boundaryValues(f, boundaryCol)
	rowIsLeft := b.Mode == bounds.ModeRowToBound
	rowInclusive, boundaryInclusive := rowAndBoundaryInclusive(b.Closure, rowIsLeft)

	prefix := prefixSums(f)
	groups := subjectGroups(f)
	boundaryTimes := boundaryTimesBySubject(f, boundaryIsSet)

	for i, a := range anchors {
		if !a.Time.Valid {
			continue
		}
		g, ok := groups[a.Subject]
		if !ok {
			continue
		}
		times := boundaryTimes[a.Subject]
		var found bool
		var boundaryMicros int64
		if rowIsLeft {
			found, boundaryMicros = nearestForward(times, a.Time.Micros, rowInclusive)
		} else {
			found, boundaryMicros = nearestBackward(times, a.Time.Micros, rowInclusive)
		}
		if !found {
			continue
		}
		boundaryTime := table.NullTime{Micros: boundaryMicros, Valid: true}
		fillAnchor(out, f, prefix, g, i, a.Time, boundaryTime, rowIsLeft, rowInclusive, boundaryInclusive)
	}

	if b.Offset != 0 {
		applyOffset(out, f, anchors, b.Offset, rowIsLeft, rowInclusive)
	}
	return out, nil
}

// boundaryValues resolves the boundary column, including the reserved
// _RECORD_START/_RECORD_END markers which are computed from per-subject
// min/max real timestamps rather than stored as columns (spec §4.3,
// "Reserved record bounds").
func boundaryValues(f *table.Frame, col string) []bool {
	n := f.Len()
	out := make([]bool, n)
	switch col {
	case bounds.ReservedRecordStart, bounds.ReservedRecordEnd:
		bnds := f.RecordBounds()
		for i := 0; i < n; i++ {
			t := f.Time[i]
			if !t.Valid {
				continue
			}
			rb, ok := bnds[f.Subject[i]]
			if !ok {
				continue
			}
			if col == bounds.ReservedRecordStart {
				out[i] = t.Equal(rb[0])
			} else {
				out[i] = t.Equal(rb[1])
			}
		}
	default:
		vals := f.Col(col)
		for i := 0; i < n; i++ {
			out[i] = f.Time[i].Valid && i < len(vals) && vals[i] != 0
		}
	}
	return out
}

// boundaryTimesBySubject collects, per subject, the ascending timestamps of
// rows whose boundary flag is set.
func boundaryTimesBySubject(f *table.Frame, isSet []bool) map[int64][]int64 {
	out := map[int64][]int64{}
	for i := 0; i < f.Len(); i++ {
		if isSet[i] {
			s := f.Subject[i]
			out[s] = append(out[s], f.Time[i].Micros)
		}
	}
	return out
}

// rowAndBoundaryInclusive maps (closure, rowIsLeft) onto which flag governs
// the anchor's own inclusion (and its eligibility to match a boundary row at
// zero distance) versus the found boundary row's own inclusion. Inclusivity
// is always relative to temporal order: left_inclusive governs whichever
// endpoint occurs earlier in time.
func rowAndBoundaryInclusive(c bounds.Closure, rowIsLeft bool) (rowInclusive, boundaryInclusive bool) {
	left, right := closureFlags(c)
	if rowIsLeft {
		return left, right
	}
	return right, left
}

// nearestForward returns the smallest boundary time at or after (per
// rowInclusive) target, from an ascending times slice.
func nearestForward(times []int64, target int64, rowInclusive bool) (bool, int64) {
	idx := sort.Search(len(times), func(k int) bool {
		if rowInclusive {
			return times[k] >= target
		}
		return times[k] > target
	})
	if idx >= len(times) {
		return false, 0
	}
	return true, times[idx]
}

// nearestBackward returns the largest boundary time at or before (per
// rowInclusive) target, from an ascending times slice.
func nearestBackward(times []int64, target int64, rowInclusive bool) (bool, int64) {
	idx := sort.Search(len(times), func(k int) bool {
		if rowInclusive {
			return times[k] > target
		}
		return times[k] >= target
	})
	idx--
	if idx < 0 {
		return false, 0
	}
	return true, times[idx]
}

// idxGE/idxGT find the first row index in [g.Start, g.End) whose time in
// micros is >=/> target.
func idxGE(f *table.Frame, g table.Group, target int64) int {
	return g.Start + sort.Search(g.End-g.Start, func(k int) bool { return f.Time[g.Start+k].Micros >= target })
}
func idxGT(f *table.Frame, g table.Group, target int64) int {
	return g.Start + sort.Search(g.End-g.Start, func(k int) bool { return f.Time[g.Start+k].Micros > target })
}

// fillAnchor computes the zero-offset window sum for one anchor given its
// resolved boundary timestamp.
func fillAnchor(out *Result, f *table.Frame, prefix map[string][]int64, g table.Group, i int, anchorTime, boundaryTime table.NullTime, rowIsLeft, rowInclusive, boundaryInclusive bool) {
	var startTime, endTime table.NullTime
	var startInclusive, endInclusive bool
	if rowIsLeft {
		startTime, endTime = anchorTime, boundaryTime
		startInclusive, endInclusive = rowInclusive, boundaryInclusive
	} else {
		startTime, endTime = boundaryTime, anchorTime
		startInclusive, endInclusive = boundaryInclusive, rowInclusive
	}
	out.Start[i], out.End[i] = startTime, endTime

	lo := idxGE(f, g, startTime.Micros)
	if !startInclusive {
		lo = idxGT(f, g, startTime.Micros)
	}
	hi := idxGT(f, g, endTime.Micros)
	if !endInclusive {
		hi = idxGE(f, g, endTime.Micros)
	}
	if hi < lo {
		hi = lo
	}
	for _, c := range f.Columns {
		out.Sums[c][i] = prefix[c][hi] - prefix[c][lo]
	}
}

// applyOffset implements spec §4.3's "Offset handling": the offset shrinks
// the interval by a fixed duration on the anchor's own side. It is computed
// by running the temporal aggregator over the span between each anchor and
// its offset-shifted timestamp, then subtracting that span's sums from the
// zero-offset result in place. inward is the signed shift from the anchor
// toward the window's interior — offset itself for a row_to_bound (left)
// anchor, -offset for a bound_to_row (right) anchor — so that a positive
// offset always shrinks the window regardless of mode.
func applyOffset(out *Result, f *table.Frame, anchors []Anchor, offset time.Duration, rowIsLeft, rowInclusive bool) {
	inward := offset
	if !rowIsLeft {
		inward = -offset
	}
	span := subtractionBound(inward, rowInclusive)
	spanResult := Temporal(f, anchors, span)

	for i := range anchors {
		if !anchors[i].Time.Valid || (rowIsLeft && !out.End[i].Valid) || (!rowIsLeft && !out.Start[i].Valid) {
			continue
		}
		for _, c := range f.Columns {
			out.Sums[c][i] -= spanResult.Sums[c][i]
		}
		shifted := anchors[i].Time.Add(inward)
		if rowIsLeft {
			out.Start[i] = shifted
		} else {
			out.End[i] = shifted
		}
	}
}

// subtractionBound builds the temporal bound covering the span between an
// anchor's own timestamp and its offset-shifted timestamp, used to remove
// the portion of the un-offset event-bound window that the offset excludes.
// rowInclusive governs the anchor's own end of the span; the shifted end is
// always exclusive, since it remains part of the final window.
func subtractionBound(inward time.Duration, rowInclusive bool) bounds.TemporalBound {
	if inward >= 0 {
		return bounds.NewTemporalBound(rowInclusive, inward, false, 0)
	}
	return bounds.NewTemporalBound(false, inward, rowInclusive, 0)
}
