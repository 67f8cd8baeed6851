package sinks

import (
	"fmt"
	"net/http"
	"time"

	"adsbfeed/internal/ratelimit"
	"adsbfeed/internal/tracker"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketSink serves decoded aircraft state as text WebSocket frames,
// one SBS-1-formatted line per update, to every connected browser client.
// Like the raw/SBS1 sinks it fans updates out through a bounded
// per-client channel (see broadcaster) so a slow browser client is
// skipped ahead rather than blocking Emit for every other client.
type WebSocketSink struct {
	name      string
	port      int
	logger    *logrus.Logger
	server    *http.Server
	sessionID int
	bc        *broadcaster
}

// NewWebSocketSink builds a WebSocket sink bound to port.
func NewWebSocketSink(port int, logger *logrus.Logger) *WebSocketSink {
	return &WebSocketSink{
		name:      "websocket",
		port:      port,
		logger:    logger,
		sessionID: 1,
		bc:        newBroadcaster("websocket", DefaultBufferCapacity, logger),
	}
}

func (s *WebSocketSink) Name() string     { return s.name }
func (s *WebSocketSink) Port() int        { return s.port }
func (s *WebSocketSink) ClientCount() int { return s.bc.count() }

// Start launches an HTTP server that upgrades every request to a
// WebSocket connection.
func (s *WebSocketSink) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	s.server = &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", s.port), Handler: mux}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("websocket sink stopped")
		}
	}()
	return nil
}

// Stop closes the HTTP server. Already-upgraded connections are not closed
// by it; their writePump and readPump goroutines exit once the client
// disconnects or a read or write fails.
func (s *WebSocketSink) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

func (s *WebSocketSink) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	id, ch := s.bc.addClient()
	go func() {
		defer s.bc.removeClient(id)
		s.writePump(conn, ch)
	}()
	go s.readPump(conn)
}

// writePump drains ch and forwards each message as a WebSocket text
// frame, until ch closes (client removed) or a write fails.
func (s *WebSocketSink) writePump(conn *websocket.Conn, ch <-chan []byte) {
	defer conn.Close()
	for data := range ch {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readPump drains and discards client frames (this sink is send-only)
// and responds to pings. On any read error (including a client
// disconnect) it closes conn, which unblocks writePump's next write so
// the broadcaster client is removed promptly.
func (s *WebSocketSink) readPump(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Emit satisfies tracker.Emitter, handing the SBS-1-formatted line to the
// broadcaster; a lagging client is skipped ahead rather than blocking
// this call.
func (s *WebSocketSink) Emit(kind ratelimit.UpdateKind, snap tracker.Snapshot) {
	if s.bc.count() == 0 {
		return
	}
	line := EncodeSBS1Line(kind, snap, s.sessionID)
	if line == "" {
		return
	}
	s.bc.broadcast([]byte(line))
}
