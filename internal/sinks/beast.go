package sinks

import (
	"bytes"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// Beast framing constants, as used by dump1090-compatible Beast feeds.
const (
	beastSync      = 0x1A
	beastTypeShort = '2'
	beastTypeLong  = '3'
)

// BeastSink serves raw Mode-S frames in Beast binary format on a TCP
// port: 0x1A sync, type byte, a 6-byte 12MHz timestamp, a 1-byte signal
// level, then the frame, with 0x1A bytes inside the payload doubled.
type BeastSink struct {
	name     string
	port     int
	logger   *logrus.Logger
	listener net.Listener
	bc       *broadcaster
}

// NewBeastSink builds a BEAST sink bound to port.
func NewBeastSink(port int, logger *logrus.Logger) *BeastSink {
	return &BeastSink{
		name:   "beast",
		port:   port,
		logger: logger,
		bc:     newBroadcaster("beast", DefaultBufferCapacity, logger),
	}
}

func (s *BeastSink) Name() string  { return s.name }
func (s *BeastSink) Port() int     { return s.port }
func (s *BeastSink) ClientCount() int { return s.bc.count() }

// Start begins listening for clients.
func (s *BeastSink) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("beast sink listen: %w", err)
	}
	s.listener = ln
	go s.acceptLoop()
	return nil
}

// Stop closes the listener. Clients already connected are not
// disconnected; each is served until it disconnects or a write fails.
func (s *BeastSink) Stop() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *BeastSink) acceptLoop() {
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

// BroadcastRaw encodes one Mode-S frame as a Beast message and fans it
// out to every connected client.
func (s *BeastSink) BroadcastRaw(data []byte, signal float32, sampleIndex uint64) {
	if s.bc.count() == 0 {
		return
	}
	s.bc.broadcast(encodeBeast(data, signal, sampleIndex))
}

func encodeBeast(data []byte, signal float32, sampleIndex uint64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(beastSync)
	if len(data) <= 7 {
		buf.WriteByte(beastTypeShort)
	} else {
		buf.WriteByte(beastTypeLong)
	}

	var ts [6]byte
	// 12MHz ticks derived from the demod-stream sample index: the demod
	// rate is 4 Msps, so one sample spans three ticks. The exact epoch
	// doesn't matter to Beast consumers, only monotonicity within a
	// session.
	ticks := sampleIndex * 3
	for i := 5; i >= 0; i-- {
		ts[i] = byte(ticks)
		ticks >>= 8
	}
	writeEscaped(&buf, ts[:])

	sig := byte(0)
	if signal > 0 {
		if signal > 255 {
			signal = 255
		}
		sig = byte(signal)
	}
	writeEscaped(&buf, []byte{sig})

	writeEscaped(&buf, data)
	return buf.Bytes()
}

// writeEscaped appends b to buf, doubling every 0x1A byte per the Beast
// framing rule.
func writeEscaped(buf *bytes.Buffer, b []byte) {
	for _, c := range b {
		buf.WriteByte(c)
		if c == beastSync {
			buf.WriteByte(beastSync)
		}
	}
}
