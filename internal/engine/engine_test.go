package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aces-go/aces/internal/table"
	"github.com/aces-go/aces/internal/taskspec"
)

func mustTask(t *testing.T, yamlConfig string) *taskspec.Task {
	t.Helper()
	task, err := taskspec.LoadConfig(context.Background(), []byte(yamlConfig))
	require.NoError(t, err)
	return task
}

func nt(micros int64) table.NullTime { return table.NullTime{Micros: micros, Valid: true} }

// buildCohortFrame models two subjects: subject 1 is admitted at t=0 and
// dies at t=30h (past the end of the 24h outcome window — used to exercise
// the "no death in window" case); subject 2 is admitted at t=0 and dies at
// t=10h (within the window).
func buildCohortFrame() *table.Frame {
	hour := int64(3600_000_000)
	f := table.New([]string{"admission", "death"})
	f.Subject = []int64{1, 1, 2, 2}
	f.Time = []table.NullTime{nt(0), nt(30 * hour), nt(0), nt(10 * hour)}
	f.Counts["admission"] = []int64{1, 0, 1, 0}
	f.Counts["death"] = []int64{0, 1, 0, 1}
	return f
}

const cohortConfig = `
predicates:
  admission:
    code: "A"
  death:
    code: "D"

trigger: admission

windows:
  outcome:
    start: trigger
    end: outcome.start + 24 hours
    start_inclusive: true
    end_inclusive: true
    label: death
    index_timestamp: start
`

func TestExtractLabelsRowsByWindowDeathCount(t *testing.T) {
	task := mustTask(t, cohortConfig)
	frame := buildCohortFrame()
	require.NoError(t, frame.Validate())

	rows, err := New(frame, task).Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	bySubject := map[int64]Row{}
	for _, r := range rows {
		bySubject[r.Subject] = r
	}

	require.NotNil(t, bySubject[1].Label)
	require.Equal(t, int64(0), *bySubject[1].Label, "subject 1's death falls outside the 24h window")

	require.NotNil(t, bySubject[2].Label)
	require.Equal(t, int64(1), *bySubject[2].Label, "subject 2's death falls inside the 24h window")

	require.Equal(t, nt(0), bySubject[1].Trigger)
	require.True(t, bySubject[1].PredictionTime.Valid)
	require.Equal(t, bySubject[1].Trigger, bySubject[1].PredictionTime, "index_timestamp: start resolves to the trigger itself here")
}

func TestExtractProducesWindowSummary(t *testing.T) {
	task := mustTask(t, cohortConfig)
	frame := buildCohortFrame()

	rows, err := New(frame, task).Extract(context.Background())
	require.NoError(t, err)

	for _, r := range rows {
		ws, ok := r.Windows["outcome"]
		require.True(t, ok)
		require.True(t, ws.Start.Valid)
		require.True(t, ws.End.Valid)
		require.Contains(t, ws.Counts, "death")
	}
}

const staticConstraintConfig = `
predicates:
  admission:
    code: "A"
  cohort_flag:
    code: "C"
    static: true
    value_min: 1
    value_min_inclusive: true

trigger: admission

windows:
  outcome:
    start: trigger
    end: outcome.start + 24 hours
    has:
      cohort_flag: "(1, None)"
`

func TestExtractAppliesStaticPredicatePrefilter(t *testing.T) {
	task := mustTask(t, staticConstraintConfig)

	hour := int64(3600_000_000)
	f := table.New([]string{"admission", "cohort_flag"})
	f.Subject = []int64{1, 1, 2, 2}
	f.Time = []table.NullTime{table.Null, nt(0), table.Null, nt(0)}
	f.Counts["admission"] = []int64{0, 1, 0, 1}
	f.Counts["cohort_flag"] = []int64{1, 0, 0, 0}
	_ = hour

	rows, err := New(f, task).Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(1), rows[0].Subject, "only subject 1's static cohort_flag=1 row passes the prefilter")
}

const derivedBoundaryConfig = `
predicates:
  admission:
    code: "A"
  discharge:
    code: "DC"
  death:
    code: "D"
  discharge_or_death:
    expr: "or(discharge, death)"

trigger: admission

windows:
  target:
    start: trigger
    end: target.start -> discharge_or_death
    start_inclusive: true
    end_inclusive: true
    label: death
    index_timestamp: start
`

// TestExtractMaterializesDerivedPredicateForEventBoundary reproduces the
// "discharge_or_death" scenario: a derived predicate used as an event
// boundary's end_event. Without materializing the derived column into the
// frame before evaluation, the boundary column is entirely absent and every
// trigger anchor drops for lack of a matching boundary row.
func TestExtractMaterializesDerivedPredicateForEventBoundary(t *testing.T) {
	task := mustTask(t, derivedBoundaryConfig)

	f := table.New([]string{"admission", "discharge", "death"})
	f.Subject = []int64{1, 1}
	f.Time = []table.NullTime{nt(0), nt(500)}
	f.Counts["admission"] = []int64{1, 0}
	f.Counts["discharge"] = []int64{0, 0}
	f.Counts["death"] = []int64{0, 1}

	rows, err := New(f, task).Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1, "the derived discharge_or_death column must be materialized for the event boundary to find its match")
	require.NotNil(t, rows[0].Label)
	require.Equal(t, int64(1), *rows[0].Label)
}

func TestExtractNoSeedsYieldsNoRows(t *testing.T) {
	task := mustTask(t, cohortConfig)
	f := table.New([]string{"admission", "death"})
	rows, err := New(f, task).Extract(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows)
}
