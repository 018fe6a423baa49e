// Package taskspec builds and validates the in-memory task specification:
// predicates, windows, and the window tree the evaluator walks.
package taskspec

import (
	"regexp"
	"strings"

	"github.com/aces-go/aces/internal/acerr"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidName reports whether name matches the predicate/window naming rule
// from spec.md §3.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// PredicateKind distinguishes the two predicate variants (spec §3).
type PredicateKind string

const (
	PredicatePlain   PredicateKind = "plain"
	PredicateDerived PredicateKind = "derived"
)

// Operator is the boolean combinator a derived predicate applies to its
// inputs.
type Operator string

const (
	OperatorAnd Operator = "and"
	OperatorOr  Operator = "or"
)

// Predicate is either a plain code/value match or a derived and/or
// combinator over other predicates.
type Predicate struct {
	Name string
	Kind PredicateKind

	// Plain fields.
	Code                                 string
	Namespace                            string // split out of a "namespace//value" code, if present
	ValueMin, ValueMax                   *float64
	ValueMinInclusive, ValueMaxInclusive bool
	Static                               bool

	// Derived fields.
	Operator Operator
	Inputs   []string
}

// splitNamespace separates a "namespace//value" code into its two halves;
// codes without "//" are returned unchanged with an empty namespace.
func splitNamespace(code string) (namespace, value string) {
	if ns, val, ok := strings.Cut(code, "//"); ok {
		return ns, val
	}
	return "", code
}

var derivedExprPattern = regexp.MustCompile(`^(and|or)\(\s*([A-Za-z0-9_]+(?:\s*,\s*[A-Za-z0-9_]+)+)\s*\)$`)

// ParseDerivedExpr parses an "and(p1,p2,...)" or "or(p1,p2,...)" expression
// into its operator and ordered input names. At least two inputs are
// required (spec §3, "over ≥2 already-defined predicates").
func ParseDerivedExpr(expr string) (Operator, []string, error) {
	m := derivedExprPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", nil, acerr.Newf(acerr.ConfigInvalid, expr, "derived predicate expression must be and(...)/or(...) over at least two predicates")
	}
	var inputs []string
	for _, part := range strings.Split(m[2], ",") {
		inputs = append(inputs, strings.TrimSpace(part))
	}
	return Operator(m[1]), inputs, nil
}

// NewPlainPredicate constructs a plain predicate, splitting the namespace
// out of code.
func NewPlainPredicate(name, code string, valueMin, valueMax *float64, minInclusive, maxInclusive, static bool) (*Predicate, error) {
	if !ValidName(name) {
		return nil, acerr.Newf(acerr.ConfigInvalid, name, "predicate name must match ^[A-Za-z0-9_]+$")
	}
	namespace, value := splitNamespace(code)
	return &Predicate{
		Name: name, Kind: PredicatePlain,
		Code: value, Namespace: namespace,
		ValueMin: valueMin, ValueMax: valueMax,
		ValueMinInclusive: minInclusive, ValueMaxInclusive: maxInclusive,
		Static: static,
	}, nil
}

// NewDerivedPredicate constructs a derived predicate from its expression.
func NewDerivedPredicate(name, expr string) (*Predicate, error) {
	if !ValidName(name) {
		return nil, acerr.Newf(acerr.ConfigInvalid, name, "predicate name must match ^[A-Za-z0-9_]+$")
	}
	op, inputs, err := ParseDerivedExpr(expr)
	if err != nil {
		return nil, err
	}
	return &Predicate{Name: name, Kind: PredicateDerived, Operator: op, Inputs: inputs}, nil
}

// PredicateSet is the full named collection of predicates for a task,
// validated to be acyclic and materializable in topological order.
type PredicateSet struct {
	byName map[string]*Predicate
	order  []string // topological order of derived predicates only
}

// NewPredicateSet validates references and acyclicity, and computes the
// topological materialization order for derived predicates (spec §3,
// §9 "Cyclic graphs").
func NewPredicateSet(predicates []*Predicate) (*PredicateSet, error) {
	byName := make(map[string]*Predicate, len(predicates))
	for _, p := range predicates {
		if _, dup := byName[p.Name]; dup {
			return nil, acerr.Newf(acerr.ConfigInvalid, p.Name, "predicate declared more than once")
		}
		byName[p.Name] = p
	}
	for _, p := range predicates {
		if p.Kind != PredicateDerived {
			continue
		}
		for _, in := range p.Inputs {
			if _, ok := byName[in]; !ok {
				return nil, acerr.Newf(acerr.ReferenceMissing, in, "derived predicate %q references undeclared predicate", p.Name)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(byName))
	var order []string
	var visit func(name string) error
	visit = func(name string) error {
		p := byName[name]
		if p == nil || p.Kind != PredicateDerived {
			color[name] = black
			return nil
		}
		switch color[name] {
		case black:
			return nil
		case gray:
			return acerr.Newf(acerr.Cycle, name, "derived predicate DAG contains a cycle")
		}
		color[name] = gray
		for _, in := range p.Inputs {
			if err := visit(in); err != nil {
				return err
			}
		}
		color[name] = black
		order = append(order, name)
		return nil
	}
	for name := range byName {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return &PredicateSet{byName: byName, order: order}, nil
}

// Get returns the named predicate, or nil if undeclared.
func (s *PredicateSet) Get(name string) *Predicate { return s.byName[name] }

// TopologicalOrder returns derived predicate names in an order where every
// predicate's inputs precede it.
func (s *PredicateSet) TopologicalOrder() []string { return s.order }
