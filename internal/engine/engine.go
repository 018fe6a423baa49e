// Package engine walks a task's window tree over a predicate table,
// producing one Row per surviving (subject, trigger timestamp) pair (spec
// §4.5-§4.7).
//
// Each node's resolved timestamp is carried forward as the anchor set for
// its children's aggregation, so the tree's offset composition the Python
// implementation achieves by threading an explicit offset-from-anchor
// duration through vectorized batches falls out for free here: a child's
// TemporalBound or EventBound is always evaluated directly against its
// parent's already-resolved anchor timestamps.
package engine

import (
	"context"
	"sort"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/aggregate"
	"github.com/aces-go/aces/internal/bounds"
	"github.com/aces-go/aces/internal/constraints"
	"github.com/aces-go/aces/internal/obslog"
	"github.com/aces-go/aces/internal/table"
	"github.com/aces-go/aces/internal/taskspec"
	"github.com/sirupsen/logrus"
)

// Evaluator extracts rows for one task against one predicate table.
type Evaluator struct {
	Frame *table.Frame
	Task  *taskspec.Task
}

// New builds an Evaluator. frame should already be sorted and validated
// (table.Frame.Validate).
func New(frame *table.Frame, task *taskspec.Task) *Evaluator {
	return &Evaluator{Frame: frame, Task: task}
}

// lineage tracks one candidate extraction as it descends the window tree:
// its fixed trigger anchor, its current (most recently resolved) position,
// and the window summaries accumulated along the path so far.
type lineage struct {
	id      int
	trigger aggregate.Anchor
	anchor  aggregate.Anchor
	windows map[string]WindowSummary
	label   *int64
	predAt  table.NullTime
}

func (l lineage) clone() lineage {
	nl := l
	nl.windows = make(map[string]WindowSummary, len(l.windows)+1)
	for k, v := range l.windows {
		nl.windows[k] = v
	}
	return nl
}

// Extract runs the full pipeline: static-predicate prefiltering, trigger
// seeding, recursive tree evaluation, and result shaping.
func (e *Evaluator) Extract(ctx context.Context) ([]Row, error) {
	log := obslog.From(ctx)
	if err := e.Task.Predicates.Materialize(e.Frame); err != nil {
		return nil, err
	}
	static, dynamic := splitConstraints(e.Task.Tree, e.Task.Predicates)
	frame := e.Frame
	if len(static) > 0 {
		before := frame.Len()
		frame = constraints.FilterStaticSubjects(frame, static)
		log.WithField("rows_excluded", before-frame.Len()).Debug("static predicate prefilter")
	}

	seeds, err := seedTrigger(frame, e.Task.Trigger)
	if err != nil {
		return nil, err
	}
	log.WithField("seeds", len(seeds)).Debug("trigger seeding complete")

	lineages := make([]lineage, len(seeds))
	for i, a := range seeds {
		lineages[i] = lineage{id: i, trigger: a, anchor: a, windows: map[string]WindowSummary{}}
	}

	ev := &evaluation{frame: frame, dynamic: dynamic, log: log}
	final, err := ev.walk(e.Task.Tree.Root, lineages)
	if err != nil {
		return nil, err
	}

	sort.Slice(final, func(i, j int) bool { return final[i].id < final[j].id })
	rows := make([]Row, len(final))
	for i, l := range final {
		rows[i] = Row{
			Subject:        l.trigger.Subject,
			Trigger:        l.trigger.Time,
			Windows:        l.windows,
			Label:          l.label,
			PredictionTime: l.predAt,
		}
	}
	if len(rows) == 0 {
		log.Warn("extraction produced no rows")
	}
	return rows, nil
}

// seedTrigger resolves the initial anchor set: every row whose trigger
// predicate fires, or every subject's record-start/record-end row when the
// trigger is one of the reserved markers (spec §4.5 "Seeding").
func seedTrigger(f *table.Frame, trigger string) ([]aggregate.Anchor, error) {
	if trigger == taskspec.RefRecordStart || trigger == taskspec.RefRecordEnd {
		bnds := f.RecordBounds()
		anchors := make([]aggregate.Anchor, 0, len(bnds))
		for s, rb := range bnds {
			t := rb[0]
			if trigger == taskspec.RefRecordEnd {
				t = rb[1]
			}
			anchors = append(anchors, aggregate.Anchor{Subject: s, Time: t})
		}
		sort.Slice(anchors, func(i, j int) bool {
			if anchors[i].Subject != anchors[j].Subject {
				return anchors[i].Subject < anchors[j].Subject
			}
			return anchors[i].Time.Micros < anchors[j].Time.Micros
		})
		return anchors, nil
	}

	col := f.Col(trigger)
	if col == nil {
		return nil, acerr.Newf(acerr.ReferenceMissing, trigger, "trigger predicate column not present in predicate table")
	}
	var anchors []aggregate.Anchor
	for i := 0; i < f.Len(); i++ {
		if f.Time[i].Valid && col[i] != 0 {
			anchors = append(anchors, aggregate.Anchor{Subject: f.Subject[i], Time: f.Time[i]})
		}
	}
	return anchors, nil
}

// evaluation carries the per-run state the recursive walk needs: the frame
// being aggregated over, and each constrained node's dynamic (non-static)
// constraint map.
type evaluation struct {
	frame   *table.Frame
	dynamic map[*taskspec.Node]constraints.Map
	log     *logrus.Entry
}

// walk recurses into node's children, evaluating each child's window
// against the live lineages, then inner-joining sibling branches back
// together on lineage id (spec §4.5 step 3: "inner-join all siblings").
func (ev *evaluation) walk(node *taskspec.Node, lineages []lineage) ([]lineage, error) {
	if len(node.Children) == 0 {
		return lineages, nil
	}

	var merged map[int]lineage
	for i, child := range node.Children {
		before := len(lineages)
		childLineages, err := ev.evalNode(child, lineages)
		if err != nil {
			return nil, err
		}
		ev.log.WithFields(logrus.Fields{
			"window":        child.Name,
			"rows_in":       before,
			"rows_survived": len(childLineages),
		}).Debug("summarized subtree")
		childLineages, err = ev.walk(child, childLineages)
		if err != nil {
			return nil, err
		}
		byID := make(map[int]lineage, len(childLineages))
		for _, l := range childLineages {
			byID[l.id] = l
		}
		if i == 0 {
			merged = byID
			continue
		}
		for id, existing := range merged {
			cl, ok := byID[id]
			if !ok {
				delete(merged, id)
				continue
			}
			for name, ws := range cl.windows {
				existing.windows[name] = ws
			}
			if cl.label != nil {
				existing.label = cl.label
			}
			if cl.predAt.Valid {
				existing.predAt = cl.predAt
			}
			merged[id] = existing
		}
	}

	out := make([]lineage, 0, len(merged))
	for _, l := range merged {
		out = append(out, l)
	}
	return out, nil
}

// evalNode resolves node's anchor (and, for a window's non-root endpoint,
// its window summary and label/index_timestamp) for every live lineage,
// dropping lineages for which no anchor resolves (a null event-bound
// boundary, or a window constraint that fails).
func (ev *evaluation) evalNode(node *taskspec.Node, lineages []lineage) ([]lineage, error) {
	anchors := make([]aggregate.Anchor, len(lineages))
	for i, l := range lineages {
		anchors[i] = l.anchor
	}

	var result *aggregate.Result
	var err error
	switch {
	case node.Temporal != nil:
		result = aggregate.Temporal(ev.frame, anchors, *node.Temporal)
	case node.Event != nil:
		result, err = aggregate.EventBound(ev.frame, node.Event.EndEvent, anchors, *node.Event)
		if err != nil {
			return nil, err
		}
	default:
		return nil, acerr.Newf(acerr.EndpointType, node.Name, "window node has neither a temporal nor an event bound")
	}

	dyn := ev.dynamic[node]
	var kept []int
	if len(dyn) > 0 {
		before := result.Len()
		result, kept = constraints.FilterResult(result, dyn)
		ev.log.WithFields(logrus.Fields{
			"window":        node.WindowName,
			"rows_excluded": before - len(kept),
		}).Debug("constraint filter")
	} else {
		kept = identityIndex(result.Len())
	}

	// A node's own timestamp (its children's anchor) is the window start for
	// a backward-directed event bound and the window end for every other bound.
	ownTimeIsStart := node.Event != nil && node.Event.Mode == bounds.ModeBoundToRow
	out := make([]lineage, 0, len(kept))
	for outIdx, srcIdx := range kept {
		ownTime := result.End[outIdx]
		if ownTimeIsStart {
			ownTime = result.Start[outIdx]
		}
		if !ownTime.Valid {
			continue
		}
		nl := lineages[srcIdx].clone()
		nl.anchor = aggregate.Anchor{Subject: nl.anchor.Subject, Time: ownTime}

		if node.WindowName != "" && !node.IsRoot {
			counts := make(map[string]int64, len(result.Columns))
			for _, c := range result.Columns {
				counts[c] = result.Sums[c][outIdx]
			}
			nl.windows[node.WindowName] = WindowSummary{Start: result.Start[outIdx], End: result.End[outIdx], Counts: counts}
			if node.Label != "" {
				v := counts[node.Label]
				nl.label = &v
			}
		}
		if node.IsIndexTime {
			nl.predAt = ownTime
		}
		out = append(out, nl)
	}
	return out, nil
}

func identityIndex(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// splitConstraints separates every node's constraint map into its static
// and dynamic parts (spec §9 "Static predicates"): static entries are
// collected into one combined map, applied once up front as a subject-
// universe filter, since a static predicate's count never varies across an
// aggregated window and would otherwise always evaluate to zero there.
func splitConstraints(tree *taskspec.Tree, predicates *taskspec.PredicateSet) (constraints.Map, map[*taskspec.Node]constraints.Map) {
	static := constraints.Map{}
	dynamic := map[*taskspec.Node]constraints.Map{}

	var walk func(n *taskspec.Node)
	walk = func(n *taskspec.Node) {
		if len(n.Constraints) > 0 {
			dyn := constraints.Map{}
			for name, r := range n.Constraints {
				p := predicates.Get(name)
				if p != nil && p.Static {
					if existing, ok := static[name]; ok {
						static[name] = intersectRange(existing, r)
					} else {
						static[name] = r
					}
					continue
				}
				dyn[name] = r
			}
			if len(dyn) > 0 {
				dynamic[n] = dyn
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree.Root)
	return static, dynamic
}

func intersectRange(a, b constraints.Range) constraints.Range {
	lo := a.Lo
	if b.Lo != nil && (lo == nil || *b.Lo > *lo) {
		lo = b.Lo
	}
	hi := a.Hi
	if b.Hi != nil && (hi == nil || *b.Hi < *hi) {
		hi = b.Hi
	}
	return constraints.Range{Lo: lo, Hi: hi}
}
