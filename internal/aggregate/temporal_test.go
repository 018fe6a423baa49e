package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aces-go/aces/internal/bounds"
	"github.com/aces-go/aces/internal/table"
)

func micros(ms int64) table.NullTime { return table.NullTime{Micros: ms, Valid: true} }

func buildTemporalFrame() *table.Frame {
	f := table.New([]string{"admission"})
	f.Subject = []int64{1, 1, 1, 2}
	f.Time = []table.NullTime{micros(0), micros(1000), micros(2000), micros(500)}
	f.Counts["admission"] = []int64{1, 1, 1, 1}
	return f
}

func TestTemporalRowAnchorsSumsWithinWindow(t *testing.T) {
	f := buildTemporalFrame()
	b := bounds.NewTemporalBound(true, 1500*time.Microsecond, true, 0)
	anchors := RowAnchors(f)
	res := Temporal(f, anchors, b)

	require.Equal(t, int64(2), res.Sums["admission"][0], "row at t=0 should see itself and t=1000 within [0,1500]")
	require.Equal(t, int64(2), res.Sums["admission"][1], "row at t=1000 should see t=1000 and t=2000 within [1000,2500]")
	require.Equal(t, int64(1), res.Sums["admission"][3], "subject 2 only has itself")
}

func TestTemporalArbitraryAnchorNotOnAnyRow(t *testing.T) {
	f := buildTemporalFrame()
	b := bounds.NewTemporalBound(true, 2000*time.Microsecond, true, 0)
	anchors := []Anchor{{Subject: 1, Time: micros(500)}}
	res := Temporal(f, anchors, b)
	require.Equal(t, micros(500), res.Start[0])
	require.Equal(t, micros(2500), res.End[0])
	require.Equal(t, int64(2), res.Sums["admission"][0], "window [500,2500] covers t=1000 and t=2000 only")
}

func TestTemporalClosureExclusions(t *testing.T) {
	f := buildTemporalFrame()
	// Window (0, 1000) exclusive on both ends excludes t=0 and t=1000.
	b := bounds.NewTemporalBound(false, 1000*time.Microsecond, false, 0)
	anchors := []Anchor{{Subject: 1, Time: micros(0)}}
	res := Temporal(f, anchors, b)
	require.Equal(t, int64(0), res.Sums["admission"][0])
}

func TestTemporalSkipsNullAnchor(t *testing.T) {
	f := buildTemporalFrame()
	b := bounds.NewTemporalBound(true, time.Hour, true, 0)
	anchors := []Anchor{{Subject: 1, Time: table.Null}}
	res := Temporal(f, anchors, b)
	require.False(t, res.Start[0].Valid)
	require.Equal(t, int64(0), res.Sums["admission"][0])
}

func TestTemporalNegativeWindowSizeReportsSignedStartEnd(t *testing.T) {
	f := buildTemporalFrame()
	// window_size=-1000us, offset=0: timestamp_at_start = t, timestamp_at_end
	// = t-1000us, looking backward from the anchor (spec S2).
	b := bounds.NewTemporalBound(true, -1000*time.Microsecond, true, 0)
	anchors := []Anchor{{Subject: 1, Time: micros(2000)}}
	res := Temporal(f, anchors, b)
	require.Equal(t, micros(2000), res.Start[0], "timestamp_at_start must stay the signed t+offset, not the earlier sweep bound")
	require.Equal(t, micros(1000), res.End[0], "timestamp_at_end must stay t+offset+window_size, here earlier than start")
	require.Equal(t, int64(2), res.Sums["admission"][0], "the sweep still scans the ascending [1000,2000] span regardless of which reported field is larger")
}

func TestTemporalUnknownSubjectYieldsZero(t *testing.T) {
	f := buildTemporalFrame()
	b := bounds.NewTemporalBound(true, time.Hour, true, 0)
	anchors := []Anchor{{Subject: 999, Time: micros(0)}}
	res := Temporal(f, anchors, b)
	require.Equal(t, int64(0), res.Sums["admission"][0])
}
