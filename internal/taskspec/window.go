package taskspec

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/bounds"
	"github.com/aces-go/aces/internal/constraints"
	"github.com/aces-go/aces/internal/duration"
	"github.com/aces-go/aces/internal/obslog"
)

// Reserved boundary references, usable as a REF token (spec §3 boundary
// grammar note: "a reserved beginning/end of record marker").
const (
	RefTrigger      = "trigger"
	RefRecordStart  = "_RECORD_START"
	RefRecordEnd    = "_RECORD_END"
)

// BoundaryKind identifies which of the four grammar forms a boundary
// expression took.
type BoundaryKind string

const (
	BoundaryRef      BoundaryKind = "ref"       // REF
	BoundaryOffset   BoundaryKind = "offset"    // REF +/- DURATION
	BoundaryToEvent  BoundaryKind = "to_event"  // REF -> PRED
	BoundaryFromBack BoundaryKind = "from_back" // REF <- PRED
)

// Boundary is a parsed boundary expression: REF | REF±DURATION | REF->PRED |
// REF<-PRED.
type Boundary struct {
	Kind      BoundaryKind
	Ref       string
	Offset    time.Duration // BoundaryOffset only
	Predicate string        // BoundaryToEvent / BoundaryFromBack only
	Raw       string
}

var (
	offsetPattern   = regexp.MustCompile(`^([A-Za-z0-9_.]+)\s*([+-])\s*(.+)$`)
	toEventPattern  = regexp.MustCompile(`^([A-Za-z0-9_.]+)\s*->\s*([A-Za-z0-9_]+)$`)
	fromBackPattern = regexp.MustCompile(`^([A-Za-z0-9_.]+)\s*<-\s*([A-Za-z0-9_]+)$`)
	refOnlyPattern  = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
)

// ParseBoundary parses a boundary expression per spec.md §3/§6's grammar:
// REF | REF ± DURATION | REF -> PRED | REF <- PRED. An expression with both
// a +/- operator and a -> / <- operator, or both directions of arrow, is
// rejected (spec §7 ConfigInvalid).
func ParseBoundary(expr string) (Boundary, error) {
	raw := strings.TrimSpace(expr)
	hasArrowTo := strings.Contains(raw, "->")
	hasArrowFrom := strings.Contains(raw, "<-")
	if hasArrowTo && hasArrowFrom {
		return Boundary{}, acerr.Newf(acerr.ConfigInvalid, raw, "boundary expression may not contain both -> and <-")
	}
	if hasArrowTo {
		m := toEventPattern.FindStringSubmatch(raw)
		if m == nil {
			return Boundary{}, acerr.Newf(acerr.ConfigInvalid, raw, "malformed REF->PRED boundary expression")
		}
		return Boundary{Kind: BoundaryToEvent, Ref: m[1], Predicate: m[2], Raw: raw}, nil
	}
	if hasArrowFrom {
		m := fromBackPattern.FindStringSubmatch(raw)
		if m == nil {
			return Boundary{}, acerr.Newf(acerr.ConfigInvalid, raw, "malformed REF<-PRED boundary expression")
		}
		return Boundary{Kind: BoundaryFromBack, Ref: m[1], Predicate: m[2], Raw: raw}, nil
	}
	if refOnlyPattern.MatchString(raw) {
		return Boundary{Kind: BoundaryRef, Ref: raw, Raw: raw}, nil
	}
	m := offsetPattern.FindStringSubmatch(raw)
	if m == nil {
		return Boundary{}, acerr.Newf(acerr.ConfigInvalid, raw, "boundary expression does not match REF | REF±DURATION | REF->PRED | REF<-PRED")
	}
	ref, sign, durExpr := m[1], m[2], strings.TrimSpace(m[3])
	if strings.HasPrefix(durExpr, "+") || strings.HasPrefix(durExpr, "-") {
		return Boundary{}, acerr.Newf(acerr.ConfigInvalid, raw, "boundary expression may not contain both + and -")
	}
	d, explicitZero, err := duration.ParseOffset(durExpr)
	if err != nil {
		return Boundary{}, err
	}
	if explicitZero {
		obslog.From(context.Background()).WithField("boundary", raw).Warn("zero-length offset dropped")
	}
	if sign == "-" {
		d = -d
	}
	return Boundary{Kind: BoundaryOffset, Ref: ref, Offset: d, Raw: raw}, nil
}

// Window is one declared window: two boundary expressions, their
// inclusivity, a constraint map, and the optional label/index_timestamp
// markers.
type Window struct {
	Name                         string
	Start, End                   Boundary
	StartInclusive, EndInclusive bool
	Constraints                  constraints.Map
	Label                        string // predicate name surfaced as the label column
	IndexTimestamp               string // "start", "end", or ""
}

// endpointRef returns the reference token a window boundary used, for
// root-node detection.
func endpointRef(b Boundary) string { return b.Ref }

// rootEndpoint reports which of start/end is this window's root: the
// endpoint anchored externally (to another window, the trigger, or a
// record marker), as opposed to the endpoint defined relative to its own
// sibling. Exactly one of the two must reference the other by
// "<name>.start" / "<name>.end" (spec §3).
func (w *Window) rootEndpoint() (root string, err error) {
	startRefsEnd := endpointRef(w.Start) == w.Name+".end"
	endRefsStart := endpointRef(w.End) == w.Name+".start"
	switch {
	case startRefsEnd && endRefsStart:
		return "", acerr.Newf(acerr.ConfigInvalid, w.Name, "window boundaries may not both reference each other")
	case startRefsEnd:
		return "end", nil
	case endRefsStart:
		return "start", nil
	default:
		return "", acerr.Newf(acerr.ConfigInvalid, w.Name, "exactly one of a window's two boundaries must reference the other")
	}
}

// resolveEndpoint converts a Boundary into the canonical bounds.TemporalBound
// or bounds.EventBound, given this endpoint's own inclusivity and the
// other endpoint's (the "sibling side") inclusivity. leftInclusive/
// rightInclusive here follow temporal order, not declaration order: for a
// window's non-root endpoint, "this side" is whichever of start_inclusive/
// end_inclusive belongs semantically to the boundary being resolved.
func resolveEndpoint(b Boundary, leftInclusive, rightInclusive bool, offset time.Duration) (temporal *bounds.TemporalBound, event *bounds.EventBound, err error) {
	switch b.Kind {
	case BoundaryRef:
		tb := bounds.NewTemporalBound(leftInclusive, 0, rightInclusive, offset)
		return &tb, nil, nil
	case BoundaryOffset:
		tb := bounds.NewTemporalBound(leftInclusive, b.Offset, rightInclusive, offset)
		return &tb, nil, nil
	case BoundaryToEvent:
		eb, err := bounds.NewEventBound(leftInclusive, b.Predicate, rightInclusive, offset)
		if err != nil {
			return nil, nil, err
		}
		return nil, &eb, nil
	case BoundaryFromBack:
		eb, err := bounds.NewEventBound(leftInclusive, "-"+b.Predicate, rightInclusive, offset)
		if err != nil {
			return nil, nil, err
		}
		return nil, &eb, nil
	default:
		return nil, nil, acerr.New(acerr.EndpointType, "boundary expression %q resolved to neither a temporal nor an event-bound endpoint", b.Raw)
	}
}
