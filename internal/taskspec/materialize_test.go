package taskspec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aces-go/aces/internal/table"
)

func buildMaterializeFrame() *table.Frame {
	f := table.New([]string{"discharge", "death"})
	f.Subject = []int64{1, 1, 2}
	f.Time = []table.NullTime{{Micros: 0, Valid: true}, {Micros: 1000, Valid: true}, {Micros: 0, Valid: true}}
	f.Counts["discharge"] = []int64{1, 0, 0}
	f.Counts["death"] = []int64{0, 1, 0}
	return f
}

func TestMaterializeAppendsOrColumn(t *testing.T) {
	discharge, _ := NewPlainPredicate("discharge", "D", nil, nil, true, true, false)
	death, _ := NewPlainPredicate("death", "X", nil, nil, true, true, false)
	combo, _ := NewDerivedPredicate("discharge_or_death", "or(discharge, death)")
	set, err := NewPredicateSet([]*Predicate{discharge, death, combo})
	require.NoError(t, err)

	f := buildMaterializeFrame()
	require.False(t, f.HasCol("discharge_or_death"))
	require.NoError(t, set.Materialize(f))
	require.True(t, f.HasCol("discharge_or_death"))
	require.Equal(t, []int64{1, 1, 0}, f.Col("discharge_or_death"))
}

func TestMaterializeAppliesAndAcrossChainedDerivedPredicates(t *testing.T) {
	a, _ := NewPlainPredicate("a", "A", nil, nil, true, true, false)
	b, _ := NewPlainPredicate("b", "B", nil, nil, true, true, false)
	c, _ := NewPlainPredicate("c", "C", nil, nil, true, true, false)
	ab, _ := NewDerivedPredicate("ab", "and(a, b)")
	abc, _ := NewDerivedPredicate("abc", "and(ab, c)")
	set, err := NewPredicateSet([]*Predicate{a, b, c, ab, abc})
	require.NoError(t, err)

	f := table.New([]string{"a", "b", "c"})
	f.Subject = []int64{1, 1}
	f.Time = []table.NullTime{{Micros: 0, Valid: true}, {Micros: 1, Valid: true}}
	f.Counts["a"] = []int64{1, 1}
	f.Counts["b"] = []int64{1, 0}
	f.Counts["c"] = []int64{1, 1}

	require.NoError(t, set.Materialize(f))
	require.Equal(t, []int64{1, 0}, f.Col("ab"), "ab must be computed before abc reads it")
	require.Equal(t, []int64{1, 0}, f.Col("abc"))
}

func TestMaterializeRerunIsIdempotentOnColumns(t *testing.T) {
	discharge, _ := NewPlainPredicate("discharge", "D", nil, nil, true, true, false)
	death, _ := NewPlainPredicate("death", "X", nil, nil, true, true, false)
	combo, _ := NewDerivedPredicate("discharge_or_death", "or(discharge, death)")
	set, err := NewPredicateSet([]*Predicate{discharge, death, combo})
	require.NoError(t, err)

	f := buildMaterializeFrame()
	require.NoError(t, set.Materialize(f))
	require.NoError(t, set.Materialize(f))
	count := 0
	for _, c := range f.Columns {
		if c == "discharge_or_death" {
			count++
		}
	}
	require.Equal(t, 1, count, "re-materializing must not duplicate the Columns entry")
}
