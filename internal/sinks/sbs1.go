package sinks

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"adsbfeed/internal/ratelimit"
	"adsbfeed/internal/tracker"

	"github.com/sirupsen/logrus"
)

// SBS-1/BaseStation transmission types this receiver emits.
const (
	transmissionESIDCat   = 1
	transmissionESAirborne = 3
	transmissionESVelocity = 4
	transmissionSurveillance = 5
)

// SBS1Sink serves decoded aircraft state as BaseStation-format CSV lines,
// one MSG record per update, CRLF-terminated.
type SBS1Sink struct {
	name      string
	port      int
	logger    *logrus.Logger
	listener  net.Listener
	bc        *broadcaster
	sessionID int
}

// NewSBS1Sink builds an SBS-1 sink bound to port.
func NewSBS1Sink(port int, logger *logrus.Logger) *SBS1Sink {
	return &SBS1Sink{
		name:      "sbs1",
		port:      port,
		logger:    logger,
		bc:        newBroadcaster("sbs1", DefaultBufferCapacity, logger),
		sessionID: 1,
	}
}

func (s *SBS1Sink) Name() string     { return s.name }
func (s *SBS1Sink) Port() int        { return s.port }
func (s *SBS1Sink) ClientCount() int { return s.bc.count() }

func (s *SBS1Sink) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("sbs1 sink listen: %w", err)
	}
	s.listener = ln
	go s.acceptLoop()
	return nil
}

func (s *SBS1Sink) Stop() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *SBS1Sink) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		id, ch := s.bc.addClient()
		go func() {
			defer s.bc.removeClient(id)
			serveClient(conn, ch)
		}()
	}
}

// Emit satisfies tracker.Emitter: it encodes snap as the MSG type
// matching kind and broadcasts the CSV line.
func (s *SBS1Sink) Emit(kind ratelimit.UpdateKind, snap tracker.Snapshot) {
	if s.bc.count() == 0 {
		return
	}
	line := s.encode(kind, snap)
	if line == "" {
		return
	}
	s.bc.broadcast([]byte(line))
}

func (s *SBS1Sink) encode(kind ratelimit.UpdateKind, snap tracker.Snapshot) string {
	return EncodeSBS1Line(kind, snap, s.sessionID)
}

// EncodeSBS1Line renders one BaseStation-format CSV line for snap, or ""
// if kind carries no data worth emitting. Exported so callers outside the
// sink itself (the log writer, the WebSocket sink) can reuse the same
// wire format without duplicating it.
func EncodeSBS1Line(kind ratelimit.UpdateKind, snap tracker.Snapshot, sessionID int) string {
	var transmissionType int
	switch kind {
	case ratelimit.Identification:
		if snap.Callsign == "" {
			return ""
		}
		transmissionType = transmissionESIDCat
	case ratelimit.Position:
		if snap.Position == nil {
			return ""
		}
		transmissionType = transmissionESAirborne
	case ratelimit.Velocity:
		if snap.Velocity == nil {
			return ""
		}
		transmissionType = transmissionESVelocity
	case ratelimit.Metadata:
		transmissionType = transmissionSurveillance
	default:
		return ""
	}

	now := time.Now()
	fields := []string{
		"MSG",
		strconv.Itoa(transmissionType),
		strconv.Itoa(sessionID),
		"1",
		fmt.Sprintf("%06X", snap.ICAO),
		"1",
		now.Format("2006/01/02"),
		now.Format("15:04:05.000"),
		now.Format("2006/01/02"),
		now.Format("15:04:05.000"),
	}

	callsign, altitude, groundSpeed, track, lat, lon, vrate, squawk := "", "", "", "", "", "", "", ""

	switch transmissionType {
	case transmissionESIDCat:
		callsign = snap.Callsign
	case transmissionESAirborne:
		altitude = strconv.Itoa(snap.Position.Altitude)
		lat = fmt.Sprintf("%.6f", snap.Position.Latitude)
		lon = fmt.Sprintf("%.6f", snap.Position.Longitude)
	case transmissionESVelocity:
		groundSpeed = strconv.Itoa(snap.Velocity.GroundSpeed)
		if snap.Velocity.HeadingValid {
			track = fmt.Sprintf("%.1f", snap.Velocity.Track)
		}
		vrate = strconv.Itoa(snap.Velocity.VerticalRate)
	case transmissionSurveillance:
		if snap.Squawk != 0 {
			squawk = fmt.Sprintf("%04d", snap.Squawk)
		}
	}

	onGround := "0"
	if snap.OnGround {
		onGround = "1"
	}

	fields = append(fields, callsign, altitude, groundSpeed, track, lat, lon, vrate, squawk, "", "", "", onGround)
	return strings.Join(fields, ",") + "\r\n"
}
