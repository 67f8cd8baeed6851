// Package output coordinates the receiver's sinks: per-TCP-port raw byte
// feeds (BEAST, AVR, raw hex) and per-TCP-port decoded-state feeds
// (SBS-1, WebSocket), behind one operational contract so the application
// layer can start, stop and report on them uniformly.
package output

import (
	"adsbfeed/internal/ratelimit"
	"adsbfeed/internal/tracker"

	"github.com/sirupsen/logrus"
)

// Config describes one sink's operational parameters.
type Config struct {
	Name            string
	Port            int
	Enabled         bool
	BufferCapacity  int
}

// DefaultBufferCapacity is the per-client broadcast channel depth sinks
// use unless overridden.
const DefaultBufferCapacity = 1024

// Sink is the contract every output module satisfies regardless of
// whether it consumes raw bytes or decoded state.
type Sink interface {
	Name() string
	Port() int
	ClientCount() int
	Start() error
	Stop() error
}

// RawSink additionally accepts raw Mode-S frame bytes, e.g. BEAST/AVR/raw
// hex feeds that re-encode the wire message themselves.
type RawSink interface {
	Sink
	BroadcastRaw(data []byte, signal float32, sampleIndex uint64)
}

// StateSink additionally accepts decoded aircraft snapshots, e.g. SBS-1
// and WebSocket feeds that format a higher-level record.
type StateSink interface {
	Sink
	tracker.Emitter
}

// Manager owns the set of configured sinks and fans updates out to them,
// isolating one sink's failure from the others.
type Manager struct {
	logger *logrus.Logger
	raw    []RawSink
	state  []StateSink
}

// NewManager builds an empty Manager; sinks are registered via RegisterRaw
// and RegisterState.
func NewManager(logger *logrus.Logger) *Manager {
	return &Manager{logger: logger}
}

// RegisterRaw adds a raw-byte sink to the manager.
func (m *Manager) RegisterRaw(s RawSink) {
	m.raw = append(m.raw, s)
}

// RegisterState adds a decoded-state sink to the manager.
func (m *Manager) RegisterState(s StateSink) {
	m.state = append(m.state, s)
}

// StartAll starts every registered sink, logging and continuing past any
// individual failure so one misconfigured port doesn't take down the
// whole receiver.
func (m *Manager) StartAll() {
	for _, s := range m.raw {
		if err := s.Start(); err != nil {
			m.logger.WithError(err).WithField("sink", s.Name()).Error("failed to start sink")
		}
	}
	for _, s := range m.state {
		if err := s.Start(); err != nil {
			m.logger.WithError(err).WithField("sink", s.Name()).Error("failed to start sink")
		}
	}
}

// StopAll stops every registered sink, best-effort.
func (m *Manager) StopAll() {
	for _, s := range m.raw {
		if err := s.Stop(); err != nil {
			m.logger.WithError(err).WithField("sink", s.Name()).Warn("error stopping sink")
		}
	}
	for _, s := range m.state {
		if err := s.Stop(); err != nil {
			m.logger.WithError(err).WithField("sink", s.Name()).Warn("error stopping sink")
		}
	}
}

// BroadcastRaw fans a raw Mode-S frame out to every raw sink.
func (m *Manager) BroadcastRaw(data []byte, signal float32, sampleIndex uint64) {
	for _, s := range m.raw {
		s.BroadcastRaw(data, signal, sampleIndex)
	}
}

// Emit satisfies tracker.Emitter, fanning a decoded update out to every
// state sink.
func (m *Manager) Emit(kind ratelimit.UpdateKind, snap tracker.Snapshot) {
	for _, s := range m.state {
		s.Emit(kind, snap)
	}
}

// ClientCounts reports the connected client count of every sink by name,
// for the metrics endpoint's per-sink client gauge.
func (m *Manager) ClientCounts() map[string]int {
	out := make(map[string]int, len(m.raw)+len(m.state))
	for _, s := range m.raw {
		out[s.Name()] = s.ClientCount()
	}
	for _, s := range m.state {
		out[s.Name()] = s.ClientCount()
	}
	return out
}
