// Package control implements the receiver's control port: a loopback-only
// line-oriented TCP endpoint that answers discrete queries about the
// tracker's live state, independent of the data sinks in internal/sinks.
package control

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"adsbfeed/internal/tracker"

	"github.com/sirupsen/logrus"
)

// Querier is the subset of *tracker.Tracker the control port depends on.
type Querier interface {
	Query() []tracker.Snapshot
	Stats() tracker.Stats
}

// Server answers control-port queries: an empty line or "aircraft"
// returns the full aircraft register as JSON; "stats" returns tracker and
// rate-limiter statistics as JSON; anything else returns a structured
// error, one JSON object per connection.
type Server struct {
	port     int
	tracker  Querier
	logger   *logrus.Logger
	listener net.Listener
}

// NewServer builds a control port server bound to port.
func NewServer(port int, t Querier, logger *logrus.Logger) *Server {
	return &Server{port: port, tracker: t, logger: logger}
}

var _ Querier = (*tracker.Tracker)(nil)

// Start begins listening on loopback.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("control port listen: %w", err)
	}
	s.listener = ln
	go s.acceptLoop()
	return nil
}

// Stop closes the listener.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	query := strings.ToLower(strings.TrimSpace(scanner.Text()))

	var payload any
	switch query {
	case "", "aircraft":
		payload = s.tracker.Query()
	case "stats":
		payload = s.tracker.Stats()
	default:
		payload = map[string]string{"error": fmt.Sprintf("unknown query %q", query)}
	}

	enc := json.NewEncoder(conn)
	if err := enc.Encode(payload); err != nil {
		s.logger.WithError(err).Debug("control port encode failed")
	}
}
