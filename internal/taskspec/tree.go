package taskspec

import (
	"strings"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/bounds"
	"github.com/aces-go/aces/internal/constraints"
	"github.com/sirupsen/logrus"
)

// Node is one point in the window tree: either the single "trigger" root,
// or a "<window>.start"/"<window>.end" endpoint carrying its resolved
// endpoint expression and, for non-root endpoints, the window's
// constraint map (spec §3 "Window tree").
type Node struct {
	Name        string
	WindowName  string // "" for trigger
	IsRoot      bool   // true for the trigger, and for a window's root endpoint
	Temporal    *bounds.TemporalBound
	Event       *bounds.EventBound
	Constraints constraints.Map
	Label       string // set on the node carrying the label predicate
	IsIndexTime bool   // set on the node chosen as index_timestamp
	Parent      *Node
	Children    []*Node
}

// Tree is the constructed, validated window tree rooted at "trigger".
type Tree struct {
	Root  *Node
	byName map[string]*Node
}

// ByName looks up a node by its "trigger" or "<window>.start"/".end" name.
func (t *Tree) ByName(name string) *Node { return t.byName[name] }

// BuildTree constructs the window tree from a set of windows, validating
// the invariants from spec.md §3: exactly one boundary per window
// references the other, references resolve, start never occurs after end,
// and at most one label/index_timestamp across the whole tree.
func BuildTree(windows []*Window, predicates *PredicateSet) (*Tree, error) {
	byName := map[string]*Node{
		"trigger": {Name: "trigger", IsRoot: true},
	}

	type built struct {
		w        *Window
		rootSide string
	}
	var all []built
	for _, w := range windows {
		if !ValidName(w.Name) {
			return nil, acerr.Newf(acerr.ConfigInvalid, w.Name, "window name must match ^[A-Za-z0-9_]+$")
		}
		if err := w.Constraints.Validate(); err != nil {
			return nil, err
		}
		rootSide, err := w.rootEndpoint()
		if err != nil {
			return nil, err
		}
		all = append(all, built{w, rootSide})

		startNode := &Node{Name: w.Name + ".start", WindowName: w.Name}
		endNode := &Node{Name: w.Name + ".end", WindowName: w.Name}
		startNode.IsRoot = rootSide == "start"
		endNode.IsRoot = rootSide == "end"
		if startNode.IsRoot {
			endNode.Constraints = w.Constraints
		} else {
			startNode.Constraints = w.Constraints
		}
		byName[startNode.Name] = startNode
		byName[endNode.Name] = endNode
	}

	var labelNode, indexNode *Node
	for _, b := range all {
		w := b.w
		startNode, endNode := byName[w.Name+".start"], byName[w.Name+".end"]
		rootNode, nonRootNode := startNode, endNode
		rootBoundary, nonRootBoundary := w.Start, w.End
		if b.rootSide == "end" {
			rootNode, nonRootNode = endNode, startNode
			rootBoundary, nonRootBoundary = w.End, w.Start
		}

		parent, ok := byName[rootBoundary.Ref]
		if !ok {
			parent, ok = resolveRecordMarker(byName, rootBoundary.Ref)
			if !ok {
				return nil, acerr.Newf(acerr.ReferenceMissing, rootBoundary.Ref, "window %q's root boundary references an undeclared window/trigger", w.Name)
			}
		}
		rootTemporal, rootEvent, err := resolveEndpoint(rootBoundary, w.StartInclusive, w.EndInclusive, 0)
		if err != nil {
			return nil, err
		}
		if rootBoundary.Kind == BoundaryRef && (rootBoundary.Ref == RefRecordStart || rootBoundary.Ref == RefRecordEnd) {
			endEvent := RefRecordEnd
			if rootBoundary.Ref == RefRecordStart {
				endEvent = "-" + RefRecordStart
			}
			eb, err := bounds.NewEventBound(true, endEvent, true, 0)
			if err != nil {
				return nil, err
			}
			rootTemporal, rootEvent = nil, &eb
		}
		rootNode.Temporal, rootNode.Event = rootTemporal, rootEvent
		attach(parent, rootNode)

		nonRootTemporal, nonRootEvent, err := resolveEndpoint(nonRootBoundary, w.StartInclusive, w.EndInclusive, 0)
		if err != nil {
			return nil, err
		}
		nonRootNode.Temporal, nonRootNode.Event = nonRootTemporal, nonRootEvent
		attach(rootNode, nonRootNode)

		if err := checkOrdering(w, rootNode, nonRootNode, b.rootSide); err != nil {
			return nil, err
		}

		if w.Label != "" {
			if predicates.Get(w.Label) == nil {
				return nil, acerr.Newf(acerr.ReferenceMissing, w.Label, "window %q's label predicate is undeclared", w.Name)
			}
			if predicates.Get(w.Label).Static {
				return nil, acerr.Newf(acerr.ConfigInvalid, w.Label, "window %q's label predicate may not be static", w.Name)
			}
			if labelNode != nil {
				return nil, acerr.New(acerr.Cardinality, "more than one window declares a label")
			}
			nonRootNode.Label = w.Label
			labelNode = nonRootNode
		}
		if w.IndexTimestamp != "" {
			if w.IndexTimestamp != "start" && w.IndexTimestamp != "end" {
				return nil, acerr.Newf(acerr.ConfigInvalid, w.IndexTimestamp, "index_timestamp must be 'start' or 'end'")
			}
			if indexNode != nil {
				return nil, acerr.New(acerr.Cardinality, "more than one window declares index_timestamp")
			}
			target := startNode
			if w.IndexTimestamp == "end" {
				target = endNode
			}
			target.IsIndexTime = true
			indexNode = target
		}
	}

	pruneIdentityNodes(byName["trigger"])

	return &Tree{Root: byName["trigger"], byName: byName}, nil
}

func attach(parent, child *Node) {
	child.Parent = parent
	parent.Children = append(parent.Children, child)
}

// resolveRecordMarker handles a root boundary referencing the reserved
// beginning/end-of-record markers directly (spec §3): such an endpoint
// attaches under trigger, and is resolved as an event bound searching for
// the reserved predicate rather than a temporal offset from a concrete
// parent row.
func resolveRecordMarker(byName map[string]*Node, ref string) (*Node, bool) {
	if ref == RefRecordStart || ref == RefRecordEnd {
		return byName["trigger"], true
	}
	return nil, false
}

// checkOrdering rejects a window whose two endpoints would require start to
// occur after end (spec §3 Ordering error), for the cases this can be
// determined statically: a temporal non-root endpoint with a negative net
// duration relative to a root anchored earlier in time than "end".
func checkOrdering(w *Window, rootNode, nonRootNode *Node, rootSide string) error {
	if nonRootNode.Temporal == nil {
		return nil // event-bound endpoints are data-dependent; checked at runtime
	}
	net := nonRootNode.Temporal.SignedOffset + nonRootNode.Temporal.SignedWindowSize
	if rootSide == "start" && net < 0 {
		return acerr.Newf(acerr.Ordering, w.Name, "window end occurs before start")
	}
	if rootSide == "end" && net > 0 {
		return acerr.Newf(acerr.Ordering, w.Name, "window start occurs after end")
	}
	return nil
}

// pruneIdentityNodes removes nodes whose endpoint is a pure identity (zero
// offset, no event bound, no constraints), re-parenting their children
// (spec §3, "Window tree").
func pruneIdentityNodes(root *Node) {
	root.Children = pruneChildren(root.Children)
}

func pruneChildren(children []*Node) []*Node {
	var out []*Node
	for _, c := range children {
		c.Children = pruneChildren(c.Children)
		if isIdentity(c) {
			for _, gc := range c.Children {
				gc.Parent = c.Parent
			}
			out = append(out, c.Children...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// logTree writes the constructed window tree at debug level, one indented
// line per node (spec §12, `utils.py`'s `log_tree`).
func logTree(log *logrus.Entry, n *Node, depth int) {
	log.Debugf("%s%s", strings.Repeat("  ", depth), n.Name)
	for _, c := range n.Children {
		logTree(log, c, depth+1)
	}
}

func isIdentity(n *Node) bool {
	if len(n.Constraints) != 0 || n.Label != "" || n.IsIndexTime {
		return false
	}
	if n.Temporal != nil {
		return n.Temporal.Offset == 0 && n.Temporal.WindowSize == 0
	}
	return n.Event == nil
}
