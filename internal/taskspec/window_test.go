package taskspec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseBoundaryRefOnly(t *testing.T) {
	b, err := ParseBoundary("trigger")
	require.NoError(t, err)
	require.Equal(t, BoundaryRef, b.Kind)
	require.Equal(t, "trigger", b.Ref)
}

func TestParseBoundaryOffset(t *testing.T) {
	b, err := ParseBoundary("trigger + 24 hours")
	require.NoError(t, err)
	require.Equal(t, BoundaryOffset, b.Kind)
	require.Equal(t, "trigger", b.Ref)
	require.Equal(t, 24*time.Hour, b.Offset)

	b, err = ParseBoundary("trigger - 30 minutes")
	require.NoError(t, err)
	require.Equal(t, -30*time.Minute, b.Offset)
}

func TestParseBoundaryToEvent(t *testing.T) {
	b, err := ParseBoundary("outcome.start -> death")
	require.NoError(t, err)
	require.Equal(t, BoundaryToEvent, b.Kind)
	require.Equal(t, "outcome.start", b.Ref)
	require.Equal(t, "death", b.Predicate)
}

func TestParseBoundaryFromBack(t *testing.T) {
	b, err := ParseBoundary("outcome.end <- admission")
	require.NoError(t, err)
	require.Equal(t, BoundaryFromBack, b.Kind)
	require.Equal(t, "admission", b.Predicate)
}

func TestParseBoundaryRejectsBothArrows(t *testing.T) {
	_, err := ParseBoundary("a -> b <- c")
	require.Error(t, err)
}

func TestParseBoundaryRejectsBothSigns(t *testing.T) {
	_, err := ParseBoundary("trigger + -30 minutes")
	require.Error(t, err)
}

func TestParseBoundaryMalformed(t *testing.T) {
	_, err := ParseBoundary("!!!not valid!!!")
	require.Error(t, err)
}

func TestRootEndpointEndReferencesStart(t *testing.T) {
	w := &Window{Name: "outcome", Start: Boundary{Ref: "trigger"}, End: Boundary{Ref: "outcome.start"}}
	side, err := w.rootEndpoint()
	require.NoError(t, err)
	require.Equal(t, "start", side)
}

func TestRootEndpointStartReferencesEnd(t *testing.T) {
	w := &Window{Name: "outcome", Start: Boundary{Ref: "outcome.end"}, End: Boundary{Ref: "trigger"}}
	side, err := w.rootEndpoint()
	require.NoError(t, err)
	require.Equal(t, "end", side)
}

func TestRootEndpointBothReferenceEachOtherIsError(t *testing.T) {
	w := &Window{Name: "outcome", Start: Boundary{Ref: "outcome.end"}, End: Boundary{Ref: "outcome.start"}}
	_, err := w.rootEndpoint()
	require.Error(t, err)
}

func TestRootEndpointNeitherReferencesTheOtherIsError(t *testing.T) {
	w := &Window{Name: "outcome", Start: Boundary{Ref: "trigger"}, End: Boundary{Ref: "trigger"}}
	_, err := w.rootEndpoint()
	require.Error(t, err)
}
