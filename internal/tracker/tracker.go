// Package tracker maintains the receiver's aircraft register: it owns the
// only mutable copy of each aircraft's state, pairs CPR frames into global
// positions, rate-limits how often each kind of update is pushed
// downstream, and answers control-port queries.
package tracker

import (
	"sync"
	"time"

	"adsbfeed/internal/cpr"
	"adsbfeed/internal/modes"
	"adsbfeed/internal/ratelimit"

	"github.com/sirupsen/logrus"
)

// adsbTimeRecent bounds how stale a CPR frame may be before it is no
// longer considered a valid pairing partner. A pair is only decoded when
// both frames are within this window of now.
const adsbTimeRecent = 10 * time.Second

// Snapshot is an immutable, copy-safe view of one aircraft's current
// state, handed to sinks through the output package.
type Snapshot struct {
	ICAO       uint32
	Callsign   string
	Category   uint8
	Squawk     int
	OnGround   bool
	Position   *PositionFix
	Velocity   *VelocityFix
	FirstSeen  time.Time
	LastSeen   time.Time
	Messages   uint64
}

// Emitter receives aircraft updates as they clear rate limiting. kind
// identifies which part of Snapshot changed, letting a sink decide which
// wire message (if any) to produce.
type Emitter interface {
	Emit(kind ratelimit.UpdateKind, snap Snapshot)
}

// Stats summarizes tracker-wide activity for the control port.
type Stats struct {
	AircraftTracked int
	MessagesTotal   uint64
	PrunedTotal     uint64
	RateLimit       ratelimit.Stats
}

// Tracker owns the aircraft register. mu guards both the register map and
// every Record reachable through it: Ingest mutates records under mu, and
// Query/Stats (called from the control port's own goroutine) read them
// under the same lock.
type Tracker struct {
	pruneAfter time.Duration
	limiter    *ratelimit.Limiter
	emitter    Emitter
	logger     *logrus.Logger

	mu       sync.RWMutex // guards register and every Record within it
	register map[uint32]*Record

	messagesTotal uint64
	prunedTotal   uint64

	lastStatsLog time.Time
}

// New builds a Tracker. pruneAfter is how long an aircraft may go unheard
// before its record is dropped; rlCfg configures per-kind rate limiting.
func New(pruneAfter time.Duration, rlCfg ratelimit.Config, emitter Emitter, logger *logrus.Logger) *Tracker {
	return &Tracker{
		pruneAfter: pruneAfter,
		limiter:    ratelimit.NewLimiter(rlCfg),
		emitter:    emitter,
		logger:     logger,
		register:   make(map[uint32]*Record),
	}
}

// pendingEmit is a (kind, snapshot) pair captured while the register lock
// is held, to be offered to the rate limiter after it's released.
type pendingEmit struct {
	kind ratelimit.UpdateKind
	snap Snapshot
}

// Ingest dispatches one verified packet into the register, updating the
// relevant Record field and offering the result to the rate limiter. now
// is passed explicitly so callers (and tests) control time. Every Record
// read and mutation happens under t.mu so it can never race with a
// concurrent Query/Stats call from the control port.
func (t *Tracker) Ingest(pkt *modes.Packet, now time.Time) {
	if pkt == nil {
		return
	}

	var pending []pendingEmit

	t.mu.Lock()
	rec, ok := t.register[pkt.ICAO]
	if !ok {
		rec = newRecord(pkt.ICAO, now)
		t.register[pkt.ICAO] = rec
	}
	rec.touch(now)
	t.messagesTotal++

	switch pkt.DF {
	case 5, 21:
		rec.Squawk = modes.ExtractSquawk(pkt.Data)
		pending = append(pending, pendingEmit{ratelimit.Metadata, t.snapshot(rec)})
	case 4, 20:
		// Surveillance altitude replies carry no identity or position
		// CPR of their own in this receiver's scope; ground state is
		// still informative.
		rec.OnGround = modes.ExtractGroundState(pkt.Data, pkt.DF)
	}

	if pkt.ME != nil {
		switch pkt.ME.Kind {
		case modes.MEIdentification:
			id := pkt.ME.Identification
			if id.Callsign != "" {
				rec.Callsign = id.Callsign
			}
			rec.Category = id.Category
			pending = append(pending, pendingEmit{ratelimit.Identification, t.snapshot(rec)})

		case modes.MEPositionBaro, modes.MEPositionGNSS:
			if snap, ok := t.handlePosition(rec, pkt, now); ok {
				pending = append(pending, pendingEmit{ratelimit.Position, snap})
			}

		case modes.MEVelocity:
			v := pkt.ME.Velocity
			rec.addVelocity(VelocityFix{
				GroundSpeed:  v.GroundSpeed,
				Track:        v.Track,
				HeadingValid: v.HeadingValid,
				VerticalRate: v.VerticalRate,
				Time:         now,
			})
			pending = append(pending, pendingEmit{ratelimit.Velocity, t.snapshot(rec)})
		}
	}
	t.mu.Unlock()

	for _, p := range pending {
		t.dispatch(p.kind, p.snap, now)
	}
}

// handlePosition stores pkt's CPR frame and, once both parities are
// available and recent, resolves and records a global position. Called
// with t.mu held. Returns the resulting snapshot and true if a position
// was resolved.
//
// The recency gate is "now - frame.time < adsbTimeRecent" for both
// frames — not "frame.time < now + adsbTimeRecent", which is the
// inverted condition the reference implementation shipped with and which
// would accept arbitrarily stale frames as long as they weren't
// timestamped in the future.
func (t *Tracker) handlePosition(rec *Record, pkt *modes.Packet, now time.Time) (Snapshot, bool) {
	pos := pkt.ME.Position
	rec.OnGround = pkt.ME.Kind == modes.MEPositionBaro && pos.Altitude == 0 && rec.OnGround

	frame := cpr.Frame{LatCPR: pos.LatCPR, LonCPR: pos.LonCPR}
	slot := &cprSlot{frame: frame, time: now}
	if pos.Odd {
		rec.oddCPR = slot
	} else {
		rec.evenCPR = slot
	}

	if rec.evenCPR == nil || rec.oddCPR == nil {
		return Snapshot{}, false
	}
	if now.Sub(rec.evenCPR.time) >= adsbTimeRecent || now.Sub(rec.oddCPR.time) >= adsbTimeRecent {
		return Snapshot{}, false
	}

	newerIsOdd := rec.oddCPR.time.After(rec.evenCPR.time)
	lat, lon, ok := cpr.GlobalPosition(rec.evenCPR.frame, rec.oddCPR.frame, newerIsOdd)
	if !ok {
		return Snapshot{}, false
	}

	rec.addPosition(PositionFix{
		Latitude:  lat,
		Longitude: lon,
		Altitude:  pos.Altitude,
		Time:      now,
	})
	return t.snapshot(rec), true
}

// dispatch offers snap to the rate limiter and emits it immediately if
// allowed. Called without t.mu held: snap is already an immutable copy.
func (t *Tracker) dispatch(kind ratelimit.UpdateKind, snap Snapshot, now time.Time) {
	res := t.limiter.Submit(snap.icaoKey(), kind, snap, now)
	if res == ratelimit.Allowed && t.emitter != nil {
		t.emitter.Emit(kind, snap)
	}
}

func (s Snapshot) icaoKey() string {
	return icaoHex(s.ICAO)
}

func icaoHex(icao uint32) string {
	const hex = "0123456789ABCDEF"
	b := [6]byte{}
	for i := 5; i >= 0; i-- {
		b[i] = hex[icao&0xF]
		icao >>= 4
	}
	return string(b[:])
}

func (t *Tracker) snapshot(rec *Record) Snapshot {
	snap := Snapshot{
		ICAO:      rec.ICAO,
		Callsign:  rec.Callsign,
		Category:  rec.Category,
		Squawk:    rec.Squawk,
		OnGround:  rec.OnGround,
		FirstSeen: rec.FirstSeen,
		LastSeen:  rec.LastSeen,
		Messages:  rec.Messages,
	}
	if p, ok := rec.LastPosition(); ok {
		snap.Position = &p
	}
	if v, ok := rec.LastVelocity(); ok {
		snap.Velocity = &v
	}
	return snap
}

// Tick runs the tracker's periodic housekeeping: pruning stale aircraft,
// sweeping the rate limiter for updates whose interval has elapsed, and
// (at most once a minute) logging a stats summary. Intended to be called
// once a second from the application's run loop.
func (t *Tracker) Tick(now time.Time) {
	t.prune(now)

	for id, kinds := range t.limiter.Sweep(now) {
		icao, ok := parseICAOHex(id)
		if !ok {
			continue
		}
		t.mu.RLock()
		rec, ok := t.register[icao]
		var snap Snapshot
		if ok {
			snap = t.snapshot(rec)
		}
		t.mu.RUnlock()
		if !ok {
			continue
		}
		for kind := range kinds {
			if t.emitter != nil {
				t.emitter.Emit(kind, snap)
			}
		}
	}

	if now.Sub(t.lastStatsLog) >= time.Minute {
		t.lastStatsLog = now
		stats := t.Stats()
		t.logger.WithFields(logrus.Fields{
			"aircraft":         stats.AircraftTracked,
			"messages":         stats.MessagesTotal,
			"pruned":           stats.PrunedTotal,
			"rate_limit_ratio": stats.RateLimit.Efficiency(),
		}).Info("tracker stats")
	}
}

// Flush drains every coalesced update still pending in the rate limiter,
// regardless of whether its interval has elapsed, and emits it. Intended
// to be called once on shutdown so the last update per (aircraft, kind)
// isn't silently dropped just because the receiver stopped first.
func (t *Tracker) Flush(now time.Time) {
	for id, kinds := range t.limiter.FlushAll() {
		icao, ok := parseICAOHex(id)
		if !ok {
			continue
		}
		t.mu.RLock()
		rec, ok := t.register[icao]
		var snap Snapshot
		if ok {
			snap = t.snapshot(rec)
		}
		t.mu.RUnlock()
		if !ok {
			continue
		}
		for kind := range kinds {
			if t.emitter != nil {
				t.emitter.Emit(kind, snap)
			}
		}
	}
}

func parseICAOHex(s string) (uint32, bool) {
	if len(s) != 6 {
		return 0, false
	}
	var v uint32
	for i := 0; i < 6; i++ {
		c := s[i]
		var d uint32
		switch {
		case c >= '0' && c <= '9':
			d = uint32(c - '0')
		case c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}

func (t *Tracker) prune(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for icao, rec := range t.register {
		if now.Sub(rec.LastSeen) > t.pruneAfter {
			delete(t.register, icao)
			t.limiter.Evict(icaoHex(icao))
			t.prunedTotal++
		}
	}
}

// Stats returns a snapshot of tracker-wide counters.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	n := len(t.register)
	messages := t.messagesTotal
	pruned := t.prunedTotal
	t.mu.RUnlock()
	return Stats{
		AircraftTracked: n,
		MessagesTotal:   messages,
		PrunedTotal:     pruned,
		RateLimit:       t.limiter.StatsSnapshot(),
	}
}

// Query returns a snapshot of every currently-tracked aircraft, for the
// control port's "aircraft" command.
func (t *Tracker) Query() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Snapshot, 0, len(t.register))
	for _, rec := range t.register {
		out = append(out, t.snapshot(rec))
	}
	return out
}
