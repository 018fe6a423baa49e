package bounds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTemporalBoundNormalizesNegativeWindowSize(t *testing.T) {
	b := NewTemporalBound(true, -2*time.Hour, false, 1*time.Hour)
	require.Equal(t, 2*time.Hour, b.WindowSize)
	require.Equal(t, -1*time.Hour, b.Offset)
	require.Equal(t, ClosureLeft, b.Closure)
}

func TestNewTemporalBoundClosure(t *testing.T) {
	cases := []struct {
		left, right bool
		want        Closure
	}{
		{true, true, ClosureBoth},
		{true, false, ClosureLeft},
		{false, true, ClosureRight},
		{false, false, ClosureNone},
	}
	for _, c := range cases {
		b := NewTemporalBound(c.left, time.Hour, c.right, 0)
		require.Equal(t, c.want, b.Closure)
	}
}

func TestWithOffset(t *testing.T) {
	b := NewTemporalBound(true, time.Hour, true, 0)
	shifted := b.WithOffset(30 * time.Minute)
	require.Equal(t, 30*time.Minute, shifted.Offset)
	require.Equal(t, time.Duration(0), b.Offset, "original must be unmodified")
}

func TestNewEventBoundParsesDirection(t *testing.T) {
	b, err := NewEventBound(true, "death", false, 0)
	require.NoError(t, err)
	require.Equal(t, "death", b.EndEvent)
	require.Equal(t, ModeRowToBound, b.Mode)

	b, err = NewEventBound(true, "-admission", false, 0)
	require.NoError(t, err)
	require.Equal(t, "admission", b.EndEvent)
	require.Equal(t, ModeBoundToRow, b.Mode)
}

func TestNewEventBoundRejectsEmpty(t *testing.T) {
	_, err := NewEventBound(true, "", false, 0)
	require.Error(t, err)
}

func TestNewEventBoundRejectsMisplacedRecordMarkers(t *testing.T) {
	_, err := NewEventBound(true, ReservedRecordStart, false, 0)
	require.Error(t, err, "_RECORD_START must only appear as a start event")

	_, err = NewEventBound(true, "-"+ReservedRecordEnd, false, 0)
	require.Error(t, err, "_RECORD_END must only appear as an end event")
}

func TestEventBoundReset(t *testing.T) {
	b, err := NewEventBound(true, "death", false, 2*time.Hour)
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), b.Reset().Offset)
	require.Equal(t, 2*time.Hour, b.Offset, "original must be unmodified")
}
