// Package bounds implements the two-variant endpoint model from the engine's
// window tree: a fixed-duration temporal bound, and an event-bound that
// tracks the nearest row satisfying a boolean predicate.
package bounds

import (
	"strings"
	"time"

	"github.com/aces-go/aces/internal/acerr"
)

// Closure is the inclusivity tag derived from a pair of boolean flags.
type Closure string

const (
	ClosureBoth  Closure = "both"
	ClosureLeft  Closure = "left"
	ClosureRight Closure = "right"
	ClosureNone  Closure = "none"
)

// Mode is the scan direction for an event bound, derived from the leading
// sign on end_event.
type Mode string

const (
	ModeRowToBound Mode = "row_to_bound"
	ModeBoundToRow Mode = "bound_to_row"
)

// ReservedRecordStart and ReservedRecordEnd resolve at aggregation time to
// the first/last real-timestamp row per subject rather than being stored as
// predicate columns.
const (
	ReservedRecordStart = "_RECORD_START"
	ReservedRecordEnd   = "_RECORD_END"
)

// closureOf maps the (left_inclusive, right_inclusive) pair onto a Closure
// tag.
func closureOf(leftInclusive, rightInclusive bool) Closure {
	switch {
	case leftInclusive && rightInclusive:
		return ClosureBoth
	case leftInclusive:
		return ClosureLeft
	case rightInclusive:
		return ClosureRight
	default:
		return ClosureNone
	}
}

// TemporalBound describes a fixed-duration window relative to a row's own
// timestamp: [time+offset, time+offset+window_size], closed per Closure.
//
// WindowSize/Offset are normalized non-negative (see NewTemporalBound) so
// the rolling-sum sweep always scans an ascending interval. SignedOffset/
// SignedWindowSize keep the original, possibly-negative values exactly as
// declared, since timestamp_at_start/timestamp_at_end (the
// <window>.{start,end}_summary fields the engine reports) are defined in
// terms of the signed values, not the sweep-oriented normalized ones
// (original_source/src/aces/aggregate.py:308-310).
type TemporalBound struct {
	WindowSize time.Duration // always normalized non-negative; see NewTemporalBound
	Offset     time.Duration

	SignedWindowSize time.Duration // as declared, sign preserved
	SignedOffset     time.Duration // as declared, sign preserved

	Closure Closure
}

// NewTemporalBound normalizes a (possibly negative) window_size by folding
// its sign into the offset, so the rolling-sum sweep only ever scans a
// non-negative period (spec.md §4.1, §9 "Signed durations"), while
// preserving the original signed window_size/offset for reporting.
func NewTemporalBound(leftInclusive bool, windowSize time.Duration, rightInclusive bool, offset time.Duration) TemporalBound {
	signedWindowSize, signedOffset := windowSize, offset
	if windowSize < 0 {
		offset += windowSize
		windowSize = -windowSize
	}
	return TemporalBound{
		WindowSize:       windowSize,
		Offset:           offset,
		SignedWindowSize: signedWindowSize,
		SignedOffset:     signedOffset,
		Closure:          closureOf(leftInclusive, rightInclusive),
	}
}

// WithOffset returns a copy of t with offset shifted by delta, used when the
// tree evaluator threads an ancestor's offset_from_anchor down to a temporal
// child.
func (t TemporalBound) WithOffset(delta time.Duration) TemporalBound {
	t.Offset += delta
	t.SignedOffset += delta
	return t
}

// EventBound describes a window whose terminal endpoint is the nearest row
// (per subject) on which a boolean predicate column is non-zero.
type EventBound struct {
	EndEvent string // predicate column name, without the direction sign
	Mode     Mode
	Closure  Closure
	Offset   time.Duration
}

// NewEventBound parses the end_event token (an optional leading '-') into a
// predicate name and Mode, and validates the reserved _RECORD_START/
// _RECORD_END placement rule from spec.md §4.1.
func NewEventBound(leftInclusive bool, endEvent string, rightInclusive bool, offset time.Duration) (EventBound, error) {
	if endEvent == "" {
		return EventBound{}, acerr.New(acerr.ConfigInvalid, "event bound end_event must not be empty")
	}
	mode := ModeRowToBound
	name := endEvent
	if strings.HasPrefix(endEvent, "-") {
		mode = ModeBoundToRow
		name = strings.TrimPrefix(endEvent, "-")
	}
	if name == ReservedRecordStart && mode != ModeBoundToRow {
		return EventBound{}, acerr.Newf(acerr.ConfigInvalid, name, "%s may only appear as a start event (leading '-')", ReservedRecordStart)
	}
	if name == ReservedRecordEnd && mode != ModeRowToBound {
		return EventBound{}, acerr.Newf(acerr.ConfigInvalid, name, "%s may only appear as an end event (no leading '-')", ReservedRecordEnd)
	}
	return EventBound{
		EndEvent: name,
		Mode:     mode,
		Closure:  closureOf(leftInclusive, rightInclusive),
		Offset:   offset,
	}, nil
}

// Reset returns a copy of e with its offset zeroed, used when the tree
// evaluator makes an event-bound child root the new anchor for its subtree
// (spec.md §4.5 step 2a).
func (e EventBound) Reset() EventBound {
	e.Offset = 0
	return e
}
