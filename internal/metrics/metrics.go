// Package metrics exposes receiver counters on a Prometheus endpoint.
// This is purely additive: the control port remains the primary
// stats/query interface, and metrics never substitutes for it.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every counter/gauge the receiver publishes.
type Registry struct {
	reg *prometheus.Registry

	PreamblesDetected prometheus.Counter
	FramesDemodulated prometheus.Counter
	MessagesValid     prometheus.Counter
	MessagesCRCFailed prometheus.Counter
	AircraftTracked   prometheus.Gauge
	SinkClients       *prometheus.GaugeVec
}

// NewRegistry builds a Registry with every metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		PreamblesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adsbfeed_preambles_detected_total",
			Help: "Total number of candidate preambles detected by the correlator.",
		}),
		FramesDemodulated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adsbfeed_frames_demodulated_total",
			Help: "Total number of frames demodulated from detected preambles.",
		}),
		MessagesValid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adsbfeed_messages_valid_total",
			Help: "Total number of frames that passed CRC verification.",
		}),
		MessagesCRCFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adsbfeed_messages_crc_failed_total",
			Help: "Total number of frames that failed CRC verification.",
		}),
		AircraftTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adsbfeed_aircraft_tracked",
			Help: "Current number of aircraft in the tracker register.",
		}),
		SinkClients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adsbfeed_sink_clients",
			Help: "Current number of connected clients per sink.",
		}, []string{"sink"}),
	}

	reg.MustRegister(
		r.PreamblesDetected,
		r.FramesDemodulated,
		r.MessagesValid,
		r.MessagesCRCFailed,
		r.AircraftTracked,
		r.SinkClients,
	)
	return r
}

// Serve starts an HTTP server exposing /metrics on port, returning once
// ctx is canceled.
func (r *Registry) Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return server.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
