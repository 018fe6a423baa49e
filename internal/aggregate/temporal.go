package aggregate

import (
	"github.com/aces-go/aces/internal/bounds"
	"github.com/aces-go/aces/internal/table"
)

// Temporal implements the fixed-duration rolling aggregator (spec §4.2): for
// each anchor, timestamp_at_start = anchor.Time+offset, timestamp_at_end =
// timestamp_at_start+window_size, and each predicate column is summed over
// every row of the same subject whose timestamp falls in that interval,
// closed per b.Closure.
//
// anchors need not be rows of f — a window anchored at an offset from a
// trigger row almost never lands on another row's own timestamp. anchors
// must be sorted by (subject, time), matching the predicate table's own
// sort order (spec §3): since both the anchor set and the table advance
// monotonically per subject, a single pair of pointers sweeps each
// subject's rows once regardless of how many anchors land in it, and an
// inclusive prefix sum per predicate column turns every window sum into an
// O(1) subtraction once the pointers land.
func Temporal(f *table.Frame, anchors []Anchor, b bounds.TemporalBound) *Result {
	out := newAnchoredResult(anchors, f.Columns)
	leftInclusive, rightInclusive := closureFlags(b.Closure)
	prefix := prefixSums(f)
	groups := subjectGroups(f)

	i := 0
	for i < len(anchors) {
		j := i + 1
		for j < len(anchors) && anchors[j].Subject == anchors[i].Subject {
			j++
		}
		g, ok := groups[anchors[i].Subject]
		lo, hi := 0, 0
		if ok {
			lo, hi = g.Start, g.Start
		}
		for k := i; k < j; k++ {
			a := anchors[k]
			if !a.Time.Valid || !ok {
				continue
			}
			// sweepLo/sweepHi use the normalized (non-negative) window so
			// the lo/hi pointers always advance over an ascending
			// interval; reportStart/reportEnd use the signed window_size/
			// offset exactly as declared, since those are what
			// timestamp_at_start/timestamp_at_end report (bounds.go's
			// SignedOffset/SignedWindowSize doc comment).
			sweepLo := a.Time.Add(b.Offset)
			sweepHi := sweepLo.Add(b.WindowSize)
			out.Start[k] = a.Time.Add(b.SignedOffset)
			out.End[k] = out.Start[k].Add(b.SignedWindowSize)

			for lo < g.End && belowLeft(f.Time[lo], sweepLo, leftInclusive) {
				lo++
			}
			if hi < lo {
				hi = lo
			}
			for hi < g.End && withinRight(f.Time[hi], sweepHi, rightInclusive) {
				hi++
			}
			for _, c := range f.Columns {
				out.Sums[c][k] = prefix[c][hi] - prefix[c][lo]
			}
		}
		i = j
	}
	return out
}

// belowLeft reports whether t fails the left-inclusivity test against
// start, i.e. it must be skipped by the lo pointer.
func belowLeft(t, start table.NullTime, leftInclusive bool) bool {
	if !t.Valid {
		return true
	}
	if leftInclusive {
		return t.Micros < start.Micros
	}
	return t.Micros <= start.Micros
}

// withinRight reports whether t still satisfies the right-inclusivity test
// against end, i.e. the hi pointer may still advance past it.
func withinRight(t, end table.NullTime, rightInclusive bool) bool {
	if !t.Valid {
		return false
	}
	if rightInclusive {
		return t.Micros <= end.Micros
	}
	return t.Micros < end.Micros
}

func closureFlags(c bounds.Closure) (left, right bool) {
	switch c {
	case bounds.ClosureBoth:
		return true, true
	case bounds.ClosureLeft:
		return true, false
	case bounds.ClosureRight:
		return false, true
	default:
		return false, false
	}
}
