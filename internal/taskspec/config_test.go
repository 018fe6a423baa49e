package taskspec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
predicates:
  admission:
    code: "ICD//I50"
    value_min_inclusive: true
    value_max_inclusive: true
  death:
    code: "OUTCOME//DEATH"
    value_min_inclusive: true
    value_max_inclusive: true

trigger: admission

windows:
  outcome:
    start: trigger
    end: outcome.start + 24 hours
    start_inclusive: true
    end_inclusive: true
    has:
      death: "(0, None)"
    label: death
    index_timestamp: start
`

func TestLoadConfigBuildsTask(t *testing.T) {
	task, err := LoadConfig(context.Background(), []byte(sampleConfig))
	require.NoError(t, err)
	require.Equal(t, "admission", task.Trigger)
	require.NotNil(t, task.Predicates.Get("death"))

	end := task.Tree.ByName("outcome.end")
	require.NotNil(t, end)
	require.Equal(t, "death", end.Label)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	_, err := LoadConfig(context.Background(), []byte("not: [valid"))
	require.Error(t, err)
}

func TestLoadConfigRejectsBadConstraintTuple(t *testing.T) {
	const cfg = `
predicates:
  admission:
    code: "A"
trigger: admission
windows:
  outcome:
    start: trigger
    end: outcome.start + 1 hour
    has:
      admission: "not a tuple"
`
	_, err := LoadConfig(context.Background(), []byte(cfg))
	require.Error(t, err)
}

func TestLoadConfigUndeclaredTrigger(t *testing.T) {
	const cfg = `
predicates:
  admission:
    code: "A"
trigger: nonexistent
windows: {}
`
	_, err := LoadConfig(context.Background(), []byte(cfg))
	require.Error(t, err)
}
