package sinks

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// textRawSink serves Mode-S frames as one ASCII-hex line per message,
// shared by the AVR (`@timestamp...;\n`) and raw-hex (`*...;\n`) formats
// which differ only in line framing.
type textRawSink struct {
	name     string
	port     int
	logger   *logrus.Logger
	listener net.Listener
	bc       *broadcaster
	format   func(data []byte, sampleIndex uint64) string
}

func newTextRawSink(name string, port int, logger *logrus.Logger, format func(data []byte, sampleIndex uint64) string) *textRawSink {
	return &textRawSink{
		name:   name,
		port:   port,
		logger: logger,
		bc:     newBroadcaster(name, DefaultBufferCapacity, logger),
		format: format,
	}
}

func (s *textRawSink) Name() string      { return s.name }
func (s *textRawSink) Port() int         { return s.port }
func (s *textRawSink) ClientCount() int  { return s.bc.count() }

func (s *textRawSink) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("%s sink listen: %w", s.name, err)
	}
	s.listener = ln
	go s.acceptLoop()
	return nil
}

func (s *textRawSink) Stop() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *textRawSink) acceptLoop() {
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

func (s *textRawSink) BroadcastRaw(data []byte, signal float32, sampleIndex uint64) {
	if s.bc.count() == 0 {
		return
	}
	s.bc.broadcast([]byte(s.format(data, sampleIndex)))
}

// AVRSink serves Mode-S frames in the AVR text format: "@" + a 12-hex-digit
// (48-bit) timestamp + uppercase-hex frame + ";\n".
type AVRSink struct{ *textRawSink }

// NewAVRSink builds an AVR sink bound to port.
func NewAVRSink(port int, logger *logrus.Logger) *AVRSink {
	return &AVRSink{newTextRawSink("avr", port, logger, func(data []byte, sampleIndex uint64) string {
		return fmt.Sprintf("@%012X%s;\n", sampleIndex&0xFFFFFFFFFFFF, hexString(data))
	})}
}

// RawHexSink serves Mode-S frames in the raw-hex text format: "*" +
// uppercase-hex frame + ";\n".
type RawHexSink struct{ *textRawSink }

// NewRawHexSink builds a raw-hex sink bound to port.
func NewRawHexSink(port int, logger *logrus.Logger) *RawHexSink {
	return &RawHexSink{newTextRawSink("rawhex", port, logger, func(data []byte, sampleIndex uint64) string {
		return "*" + hexString(data) + ";\n"
	})}
}

func hexString(data []byte) string {
	const hexDigits = "0123456789ABCDEF"
	out := make([]byte, len(data)*2)
	for i, b := range data {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0xF]
	}
	return string(out)
}
