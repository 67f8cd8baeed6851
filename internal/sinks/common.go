// Package sinks implements the receiver's output modules: BEAST, AVR and
// raw-hex byte feeds, and SBS-1/WebSocket decoded-state feeds, all built
// on a shared bounded per-client broadcast fan-out so one slow client
// never blocks the producer.
package sinks

import (
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultBufferCapacity is the per-client broadcast channel depth used
// unless a sink is configured with a different value.
const DefaultBufferCapacity = 1024

// broadcaster fans byte payloads out to a set of TCP clients, each with
// its own bounded channel. A client that falls behind has its oldest
// buffered message dropped rather than blocking the sender.
type broadcaster struct {
	logger *logrus.Logger
	name   string
	cap    int

	mu      sync.Mutex
	clients map[uuid.UUID]chan []byte
}

func newBroadcaster(name string, capacity int, logger *logrus.Logger) *broadcaster {
	if capacity <= 0 {
		capacity = 1024
	}
	return &broadcaster{
		logger:  logger,
		name:    name,
		cap:     capacity,
		clients: make(map[uuid.UUID]chan []byte),
	}
}

func (b *broadcaster) addClient() (uuid.UUID, chan []byte) {
	id := uuid.New()
	ch := make(chan []byte, b.cap)
	b.mu.Lock()
	b.clients[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *broadcaster) removeClient(id uuid.UUID) {
	b.mu.Lock()
	ch, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
	}
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (b *broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// broadcast sends data to every connected client, skipping ahead (dropping
// the oldest queued message) for any client whose channel is full rather
// than blocking the caller.
func (b *broadcaster) broadcast(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.clients {
		select {
		case ch <- data:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- data:
			default:
				b.logger.WithFields(logrus.Fields{"sink": b.name, "client": id}).Warn("client lagging, dropped frame")
			}
		}
	}
}

// serveClient writes everything sent on ch to conn until ch is closed or
// the connection errors.
func serveClient(conn net.Conn, ch <-chan []byte) {
	defer conn.Close()
	for data := range ch {
		if _, err := conn.Write(data); err != nil {
			return
		}
	}
}
