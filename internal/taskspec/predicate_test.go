package taskspec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPlainPredicateSplitsNamespace(t *testing.T) {
	p, err := NewPlainPredicate("admission", "ICD//I50", nil, nil, true, true, false)
	require.NoError(t, err)
	require.Equal(t, "ICD", p.Namespace)
	require.Equal(t, "I50", p.Code)
}

func TestNewPlainPredicateRejectsBadName(t *testing.T) {
	_, err := NewPlainPredicate("bad name", "X", nil, nil, true, true, false)
	require.Error(t, err)
}

func TestParseDerivedExprRequiresTwoInputs(t *testing.T) {
	_, _, err := ParseDerivedExpr("and(a)")
	require.Error(t, err)
}

func TestParseDerivedExprAnd(t *testing.T) {
	op, inputs, err := ParseDerivedExpr("and(a, b, c)")
	require.NoError(t, err)
	require.Equal(t, OperatorAnd, op)
	require.Equal(t, []string{"a", "b", "c"}, inputs)
}

func TestNewPredicateSetRejectsDuplicateName(t *testing.T) {
	p1, _ := NewPlainPredicate("x", "A", nil, nil, true, true, false)
	p2, _ := NewPlainPredicate("x", "B", nil, nil, true, true, false)
	_, err := NewPredicateSet([]*Predicate{p1, p2})
	require.Error(t, err)
}

func TestNewPredicateSetRejectsMissingReference(t *testing.T) {
	d, _ := NewDerivedPredicate("combo", "and(a, b)")
	_, err := NewPredicateSet([]*Predicate{d})
	require.Error(t, err)
}

func TestNewPredicateSetRejectsCycle(t *testing.T) {
	a, _ := NewDerivedPredicate("a", "and(b, c)")
	b, _ := NewDerivedPredicate("b", "and(a, c)")
	c, _ := NewPlainPredicate("c", "X", nil, nil, true, true, false)
	_, err := NewPredicateSet([]*Predicate{a, b, c})
	require.Error(t, err)
}

func TestNewPredicateSetTopologicalOrder(t *testing.T) {
	leaf1, _ := NewPlainPredicate("leaf1", "A", nil, nil, true, true, false)
	leaf2, _ := NewPlainPredicate("leaf2", "B", nil, nil, true, true, false)
	combo, _ := NewDerivedPredicate("combo", "and(leaf1, leaf2)")
	set, err := NewPredicateSet([]*Predicate{leaf1, leaf2, combo})
	require.NoError(t, err)
	require.Equal(t, []string{"combo"}, set.TopologicalOrder())
	require.NotNil(t, set.Get("leaf1"))
	require.Nil(t, set.Get("missing"))
}
