package tracker

import (
	"io"
	"testing"
	"time"

	"adsbfeed/internal/demod"
	"adsbfeed/internal/modes"
	"adsbfeed/internal/ratelimit"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	events []struct {
		kind ratelimit.UpdateKind
		snap Snapshot
	}
}

func (r *recordingEmitter) Emit(kind ratelimit.UpdateKind, snap Snapshot) {
	r.events = append(r.events, struct {
		kind ratelimit.UpdateKind
		snap Snapshot
	}{kind, snap})
}

func newTestTracker(em Emitter) *Tracker {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(time.Minute, ratelimit.DefaultConfig(), em, logger)
}

func identPacket(icao uint32) *modes.Packet {
	return &modes.Packet{
		ICAO: icao,
		DF:   17,
		ME: &modes.MEPayload{
			Kind:           modes.MEIdentification,
			Identification: &modes.Identification{Callsign: "TEST123", Category: 1},
		},
	}
}

func positionPacket(icao uint32, lat, lon uint32, odd bool, alt int) *modes.Packet {
	return &modes.Packet{
		ICAO: icao,
		DF:   17,
		ME: &modes.MEPayload{
			Kind:     modes.MEPositionBaro,
			Position: &modes.CPRPosition{LatCPR: lat, LonCPR: lon, Odd: odd, Altitude: alt},
		},
	}
}

func TestIngestIdentificationEmitsImmediately(t *testing.T) {
	em := &recordingEmitter{}
	tr := newTestTracker(em)
	now := time.Now()

	tr.Ingest(identPacket(0xABCDEF), now)

	require.Len(t, em.events, 1)
	assert.Equal(t, ratelimit.Identification, em.events[0].kind)
	assert.Equal(t, "TEST123", em.events[0].snap.Callsign)
}

func TestIngestPositionPairResolves(t *testing.T) {
	em := &recordingEmitter{}
	tr := newTestTracker(em)
	now := time.Now()

	tr.Ingest(positionPacket(0x112233, 93000, 51372, false, 38000), now)
	tr.Ingest(positionPacket(0x112233, 74158, 50194, true, 38000), now.Add(200*time.Millisecond))

	require.NotEmpty(t, em.events)
	last := em.events[len(em.events)-1]
	assert.Equal(t, ratelimit.Position, last.kind)
	require.NotNil(t, last.snap.Position)
}

func TestIngestStalePositionPairRejected(t *testing.T) {
	em := &recordingEmitter{}
	tr := newTestTracker(em)
	now := time.Now()

	tr.Ingest(positionPacket(0x112233, 93000, 51372, false, 38000), now)
	tr.Ingest(positionPacket(0x112233, 74158, 50194, true, 38000), now.Add(20*time.Second))

	for _, e := range em.events {
		assert.Nil(t, e.snap.Position)
	}
}

func TestPruneRemovesStaleAircraft(t *testing.T) {
	em := &recordingEmitter{}
	tr := newTestTracker(em)
	now := time.Now()

	tr.Ingest(identPacket(0xABCDEF), now)
	assert.Len(t, tr.Query(), 1)

	tr.Tick(now.Add(2 * time.Minute))
	assert.Len(t, tr.Query(), 0)
}

func TestVelocityRateLimitedThenSwept(t *testing.T) {
	em := &recordingEmitter{}
	tr := newTestTracker(em)
	now := time.Now()

	velPkt := func() *modes.Packet {
		return &modes.Packet{
			ICAO: 0x445566,
			DF:   17,
			ME: &modes.MEPayload{
				Kind:     modes.MEVelocity,
				Velocity: &modes.Velocity{GroundSpeed: 400, Track: 90, HeadingValid: true},
			},
		}
	}

	tr.Ingest(velPkt(), now)
	initialEvents := len(em.events)

	tr.Ingest(velPkt(), now.Add(100*time.Millisecond))
	assert.Equal(t, initialEvents, len(em.events), "second velocity update within interval should be coalesced")

	tr.Tick(now.Add(1500 * time.Millisecond))
	assert.Greater(t, len(em.events), initialEvents, "sweep should flush the coalesced velocity update")
}

// TestFlushDrainsCoalescedUpdateOnShutdown is a regression test: without a
// final drain, a velocity update coalesced just before shutdown would never
// reach the emitter because its interval hadn't elapsed yet.
func TestFlushDrainsCoalescedUpdateOnShutdown(t *testing.T) {
	em := &recordingEmitter{}
	tr := newTestTracker(em)
	now := time.Now()

	velPkt := &modes.Packet{
		ICAO: 0x445566,
		DF:   17,
		ME: &modes.MEPayload{
			Kind:     modes.MEVelocity,
			Velocity: &modes.Velocity{GroundSpeed: 400, Track: 90, HeadingValid: true},
		},
	}

	tr.Ingest(velPkt, now)
	initialEvents := len(em.events)

	tr.Ingest(velPkt, now.Add(100*time.Millisecond))
	assert.Equal(t, initialEvents, len(em.events), "second update within interval should be coalesced")

	tr.Flush(now.Add(200 * time.Millisecond))
	require.Greater(t, len(em.events), initialEvents, "shutdown flush should emit the coalesced update")
	assert.Equal(t, ratelimit.Velocity, em.events[len(em.events)-1].kind)
}

// TestIngestDF5SquawkRecoversICAOFromOverlay is a regression test: DF5/21
// surveillance replies overlay their ICAO address onto the parity field,
// so the packet handed to Ingest must already carry the recovered address
// (as modes.Decode now does) for the squawk update to land on the right
// record.
func TestIngestDF5SquawkRecoversICAOFromOverlay(t *testing.T) {
	em := &recordingEmitter{}
	tr := newTestTracker(em)
	now := time.Now()

	tr.Ingest(identPacket(0x112233), now)

	// Overlay the address onto the parity field and let modes.Decode
	// recover it, as the live pipeline does.
	data := []byte{5 << 3, 0x20, 0x13, 0x00, 0x00, 0x00, 0x00}
	parity := modes.CalculateCRC(data[:4]) ^ 0x112233
	data[4], data[5], data[6] = byte(parity>>16), byte(parity>>8), byte(parity)
	squawkPkt := modes.Decode(&demod.Frame{Data: data})
	require.NotNil(t, squawkPkt)
	tr.Ingest(squawkPkt, now.Add(time.Millisecond))

	snaps := tr.Query()
	require.Len(t, snaps, 1)
	assert.Equal(t, modes.ExtractSquawk(squawkPkt.Data), snaps[0].Squawk)
}
