package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"adsbfeed/internal/control"
	"adsbfeed/internal/demod"
	"adsbfeed/internal/dsp"
	"adsbfeed/internal/logging"
	"adsbfeed/internal/metrics"
	"adsbfeed/internal/modes"
	"adsbfeed/internal/output"
	"adsbfeed/internal/ratelimit"
	"adsbfeed/internal/rtlsdr"
	"adsbfeed/internal/sinks"
	"adsbfeed/internal/tracker"
)

// demodSamplesPerUS is the fixed rate, in samples per microsecond, every
// source is resampled to before preamble correlation: 4 samples/us (4
// Msps, 2 samples per half-symbol) is enough to resolve the half-symbol
// PPM encoding without the
// cost of dump1090's classic 2.4 Msps-or-nothing requirement.
const demodSamplesPerUS = 4

// Application wires together the receive pipeline: a sample source, the
// DSP front end, the PPM demodulator, Mode-S decoding, the aircraft
// tracker and the output sinks.
type Application struct {
	config Config
	logger *logrus.Logger

	source      rtlsdr.Source
	logRotator  *logging.LogRotator
	metrics     *metrics.Registry
	manager     *output.Manager
	control     *control.Server
	tracker     *tracker.Tracker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApplication builds an Application from config; components are
// constructed lazily in Start so construction failures surface there.
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start initializes every component, runs the pipeline, and blocks until
// SIGINT or SIGTERM arrives. It keeps waiting for a signal even after the
// sample source has stopped on its own (e.g. at the end of a capture file).
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("starting ADS-B receiver")

	if err := app.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	app.run()

	<-sigChan
	app.logger.Info("received shutdown signal")
	app.shutdown()

	return nil
}

func (app *Application) initializeComponents() error {
	var err error

	if app.config.CaptureFile != "" {
		app.source, err = rtlsdr.NewFileSource(app.config.CaptureFile, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
	} else {
		app.source, err = rtlsdr.NewRTLSDRDevice(app.config.DeviceIndex)
		if err != nil {
			return fmt.Errorf("failed to initialize RTL-SDR: %w", err)
		}
	}
	if err := app.source.Configure(app.config.Frequency, app.config.SampleRate, app.config.Gain); err != nil {
		return fmt.Errorf("failed to configure source: %w", err)
	}

	app.logRotator, err = logging.NewLogRotator(app.config.LogDir, app.config.LogRotateUTC, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log rotator: %w", err)
	}
	// Rotated logs older than LogMaxDays are removed once, at startup.
	if err := app.logRotator.CleanupOldLogs(app.config.LogMaxDays); err != nil {
		app.logger.WithError(err).Warn("failed to clean up old log files")
	}

	app.manager = output.NewManager(app.logger)
	app.registerSinks()

	emitter := tracker.Emitter(app.manager)
	if fileEmitter := newFileLogEmitter(app.logRotator, app.logger); fileEmitter != nil {
		emitter = multiEmitter{app.manager, fileEmitter}
	}
	app.tracker = tracker.New(app.config.PruneAfter, app.config.RateLimit, emitter, app.logger)

	if app.config.EnableControlPort {
		app.control = control.NewServer(app.config.ControlPort, app.tracker, app.logger)
	}

	if app.config.EnableMetrics {
		app.metrics = metrics.NewRegistry()
	}

	return nil
}

// multiEmitter fans one tracker update out to several emitters, so the
// live sinks and the rotating text log both see every update.
type multiEmitter []tracker.Emitter

func (m multiEmitter) Emit(kind ratelimit.UpdateKind, snap tracker.Snapshot) {
	for _, e := range m {
		e.Emit(kind, snap)
	}
}

// fileLogEmitter writes every decoded-state update to the rotating log
// directory in BaseStation/SBS-1 format, alongside whatever is streamed
// live to the SBS-1 and WebSocket sinks.
type fileLogEmitter struct {
	rotator *logging.LogRotator
	logger  *logrus.Logger
}

func newFileLogEmitter(rotator *logging.LogRotator, logger *logrus.Logger) *fileLogEmitter {
	if rotator == nil {
		return nil
	}
	return &fileLogEmitter{rotator: rotator, logger: logger}
}

func (f *fileLogEmitter) Emit(kind ratelimit.UpdateKind, snap tracker.Snapshot) {
	line := sinks.EncodeSBS1Line(kind, snap, 1)
	if line == "" {
		return
	}
	w, err := f.rotator.GetWriter()
	if err != nil {
		f.logger.WithError(err).Debug("failed to get log writer")
		return
	}
	if _, err := w.Write([]byte(line)); err != nil {
		f.logger.WithError(err).Debug("failed to write state log")
	}
}

// registerSinks builds and registers every enabled output sink.
func (app *Application) registerSinks() {
	c := app.config
	if c.EnableBeast {
		app.manager.RegisterRaw(sinks.NewBeastSink(c.BeastPort, app.logger))
	}
	if c.EnableAVR {
		app.manager.RegisterRaw(sinks.NewAVRSink(c.AVRPort, app.logger))
	}
	if c.EnableRawHex {
		app.manager.RegisterRaw(sinks.NewRawHexSink(c.RawHexPort, app.logger))
	}
	if c.EnableSBS1 {
		app.manager.RegisterState(sinks.NewSBS1Sink(c.SBS1Port, app.logger))
	}
	if c.EnableWebSocket {
		app.manager.RegisterState(sinks.NewWebSocketSink(c.WebSocketPort, app.logger))
	}
}

// run starts every long-lived goroutine: sample capture, the DSP/decode
// pipeline, tracker housekeeping, sinks and (optionally) the metrics
// server.
func (app *Application) run() {
	dataChan := make(chan []byte, 100)

	app.manager.StartAll()

	if app.control != nil {
		if err := app.control.Start(); err != nil {
			app.logger.WithError(err).Error("failed to start control port")
		}
	}

	if app.metrics != nil {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			if err := app.metrics.Serve(app.ctx, app.config.MetricsPort); err != nil {
				app.logger.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.source.StartCapture(app.ctx, dataChan); err != nil {
			app.logger.WithError(err).Error("sample capture failed")
		}
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.processSamples(dataChan)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.runTicker()
	}()

	app.logger.Info("pipeline running")
}

// processSamples drives the DSP front end, demodulator and decoder for
// every chunk of raw IQ bytes, feeding verified packets to the tracker
// and raw frame bytes to the raw sinks.
func (app *Application) processSamples(dataChan <-chan []byte) {
	demodRate := uint32(demodSamplesPerUS * 1_000_000)
	resampler := dsp.NewResampler(app.config.SampleRate, demodRate, app.logger)
	noiseFloor := dsp.NewNoiseFloor()
	correlator := dsp.NewCorrelator(demodSamplesPerUS)
	detectorCfg := dsp.DefaultDetectorConfig(demodSamplesPerUS)
	detectorCfg.Threshold = float32(app.config.DetectorThreshold)
	detector := dsp.NewDetector(detectorCfg, correlator)

	preambleLen := dsp.PreambleLenSamples(demodSamplesPerUS)
	demodulator := demod.NewDemodulator(demod.DefaultConfig(), preambleLen, demodSamplesPerUS)

	for {
		select {
		case <-app.ctx.Done():
			app.logger.Info("sample processing stopped")
			return
		case data, ok := <-dataChan:
			if !ok {
				return
			}
			app.processChunk(data, resampler, noiseFloor, correlator, detector, demodulator)
		}
	}
}

func (app *Application) processChunk(
	data []byte,
	resampler *dsp.Resampler,
	noiseFloor *dsp.NoiseFloor,
	correlator *dsp.Correlator,
	detector *dsp.Detector,
	demodulator *demod.Demodulator,
) {
	iq := bytesToIQ(data)
	resampled := resampler.Resample(iq)
	if len(resampled) == 0 {
		return
	}

	x2 := dsp.MagnitudeSquared(resampled)
	nf := noiseFloor.Estimate(x2)
	c := correlator.Correlate(x2)

	now := time.Now()
	windows := detector.Detect(x2, nf, c, now)
	if app.metrics != nil && len(windows) > 0 {
		for range windows {
			app.metrics.PreamblesDetected.Inc()
		}
	}

	for _, w := range windows {
		frame := demodulator.Demodulate(w)
		if frame == nil {
			continue
		}
		if app.metrics != nil {
			app.metrics.FramesDemodulated.Inc()
		}

		pkt := modes.Decode(frame)
		if pkt == nil {
			if app.metrics != nil {
				app.metrics.MessagesCRCFailed.Inc()
			}
			continue
		}
		if app.metrics != nil {
			app.metrics.MessagesValid.Inc()
		}

		app.manager.BroadcastRaw(pkt.Data, pkt.Signal, pkt.SampleIndex)
		app.tracker.Ingest(pkt, now)
	}
}

// bytesToIQ converts raw unsigned 8-bit interleaved I/Q bytes into
// complex baseband samples, centering the unsigned range on zero.
func bytesToIQ(data []byte) []dsp.Sample {
	samples := make([]dsp.Sample, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		re := float32(data[i]) - 127.5
		im := float32(data[i+1]) - 127.5
		samples[i/2] = dsp.Sample(complex(re, im))
	}
	return samples
}

// runTicker drives the tracker's periodic housekeeping (pruning stale
// aircraft, sweeping coalesced rate-limited updates) and refreshes the
// metrics gauges that reflect live state rather than counters.
func (app *Application) runTicker() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case now := <-ticker.C:
			app.tracker.Tick(now)
			if app.metrics != nil {
				app.metrics.AircraftTracked.Set(float64(app.tracker.Stats().AircraftTracked))
				for name, count := range app.manager.ClientCounts() {
					app.metrics.SinkClients.WithLabelValues(name).Set(float64(count))
				}
			}
		}
	}
}

// shutdown cancels the pipeline context, waits (with a timeout) for every
// goroutine to exit, then closes the source, log rotator and sinks.
func (app *Application) shutdown() {
	app.logger.Info("shutting down")
	app.cancel()

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("all goroutines finished")
	case <-time.After(5 * time.Second):
		app.logger.Warn("shutdown timeout, forcing exit")
	}

	if app.tracker != nil {
		app.tracker.Flush(time.Now())
	}
	if app.source != nil {
		app.source.Close()
	}
	if app.logRotator != nil {
		app.logRotator.Close()
	}
	if app.manager != nil {
		app.manager.StopAll()
	}
	if app.control != nil {
		app.control.Stop()
	}

	app.logger.Info("shutdown complete")
}
