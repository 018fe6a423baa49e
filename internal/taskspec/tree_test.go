package taskspec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aces-go/aces/internal/constraints"
)

func mustBoundary(t *testing.T, expr string) Boundary {
	t.Helper()
	b, err := ParseBoundary(expr)
	require.NoError(t, err)
	return b
}

func TestBuildTreeSimpleRootedAtTrigger(t *testing.T) {
	preds, err := NewPredicateSet(nil)
	require.NoError(t, err)

	w := &Window{
		Name:           "outcome",
		Start:          mustBoundary(t, "trigger"),
		End:            mustBoundary(t, "outcome.start + 24 hours"),
		StartInclusive: true,
		EndInclusive:   true,
	}
	tree, err := BuildTree([]*Window{w}, preds)
	require.NoError(t, err)

	start := tree.ByName("outcome.start")
	require.NotNil(t, start)
	require.True(t, start.IsRoot)
	require.Equal(t, tree.Root, start.Parent)

	end := tree.ByName("outcome.end")
	require.NotNil(t, end)
	require.False(t, end.IsRoot)
	// outcome.start is an identity endpoint, so pruning re-parents
	// outcome.end directly under trigger.
	require.Equal(t, tree.Root, end.Parent)
}

func TestBuildTreeRejectsUndeclaredReference(t *testing.T) {
	preds, err := NewPredicateSet(nil)
	require.NoError(t, err)

	w := &Window{
		Name:  "outcome",
		Start: mustBoundary(t, "nonexistent"),
		End:   mustBoundary(t, "outcome.start + 1 hour"),
	}
	_, err = BuildTree([]*Window{w}, preds)
	require.Error(t, err)
}

func TestBuildTreeRejectsBadWindowName(t *testing.T) {
	preds, err := NewPredicateSet(nil)
	require.NoError(t, err)

	w := &Window{
		Name:  "bad name",
		Start: mustBoundary(t, "trigger"),
		End:   Boundary{Kind: BoundaryRef, Ref: "bad name.start", Raw: "bad name.start"},
	}
	_, err = BuildTree([]*Window{w}, preds)
	require.Error(t, err)
}

func TestBuildTreeRecordMarkerRoot(t *testing.T) {
	preds, err := NewPredicateSet(nil)
	require.NoError(t, err)

	w := &Window{
		Name:  "full_record",
		Start: mustBoundary(t, RefRecordStart),
		End:   mustBoundary(t, "full_record.start -> "+RefRecordEnd),
	}
	tree, err := BuildTree([]*Window{w}, preds)
	require.NoError(t, err)
	start := tree.ByName("full_record.start")
	require.Equal(t, tree.Root, start.Parent)
}

func TestBuildTreeRejectsMultipleLabels(t *testing.T) {
	admission, _ := NewPlainPredicate("admission", "A", nil, nil, true, true, false)
	preds, err := NewPredicateSet([]*Predicate{admission})
	require.NoError(t, err)

	w1 := &Window{
		Name: "w1", Start: mustBoundary(t, "trigger"), End: mustBoundary(t, "w1.start + 1 hour"),
		Label: "admission",
	}
	w2 := &Window{
		Name: "w2", Start: mustBoundary(t, "trigger"), End: mustBoundary(t, "w2.start + 1 hour"),
		Label: "admission",
	}
	_, err = BuildTree([]*Window{w1, w2}, preds)
	require.Error(t, err)
}

func TestBuildTreePrunesIdentityNodes(t *testing.T) {
	preds, err := NewPredicateSet(nil)
	require.NoError(t, err)

	// outcome.start is a pure identity on trigger (ref-only, no offset, no
	// constraints), so it should be pruned and outcome.end reparented
	// directly under trigger.
	w := &Window{
		Name:           "outcome",
		Start:          mustBoundary(t, "trigger"),
		End:            mustBoundary(t, "outcome.start + 24 hours"),
		StartInclusive: true,
		EndInclusive:   true,
		Constraints:    constraints.Map{},
	}
	tree, err := BuildTree([]*Window{w}, preds)
	require.NoError(t, err)
	require.Len(t, tree.Root.Children, 1)
	require.Equal(t, "outcome.end", tree.Root.Children[0].Name)
}
