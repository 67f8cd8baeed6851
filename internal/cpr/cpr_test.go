package cpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNLTableMonotonicDecreasing(t *testing.T) {
	prev := NLTable(0)
	assert.Equal(t, 59, prev)
	for lat := 1.0; lat < 90; lat += 1.0 {
		n := NLTable(lat)
		assert.LessOrEqual(t, n, prev)
		prev = n
	}
	assert.Equal(t, 1, NLTable(89.9))
}

func TestGlobalPositionKnownPair(t *testing.T) {
	// Frames derived from a canonical dump1090 CPR worked example
	// (even then odd squitter for the same aircraft).
	even := Frame{LatCPR: 93000, LonCPR: 51372}
	odd := Frame{LatCPR: 74158, LonCPR: 50194}

	lat, lon, ok := GlobalPosition(even, odd, true)
	require.True(t, ok)
	assert.InDelta(t, 52.25, lat, 1.0)
	assert.InDelta(t, 3.91, lon, 1.0)
}

func TestGlobalPositionCrossesZoneRejected(t *testing.T) {
	// The even frame decodes to ~10.450 deg (NL 59) and the odd frame to
	// ~10.490 deg (NL 58), on opposite sides of the 10.4705 deg boundary.
	even := Frame{LatCPR: 97211, LonCPR: 0}
	odd := Frame{LatCPR: 94266, LonCPR: 131071}

	_, _, ok := GlobalPosition(even, odd, true)
	assert.False(t, ok)
}
