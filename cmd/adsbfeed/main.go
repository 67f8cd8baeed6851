package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"adsbfeed/internal/app"
)

func main() {
	config := app.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "adsbfeed",
		Short: "ADS-B/Mode-S 1090MHz receiver",
		Long: `adsbfeed captures 1090MHz I/Q samples from an RTL-SDR dongle (or replays a
capture file), demodulates Mode-S/ADS-B squitters, verifies CRC, tracks
aircraft state with CPR position pairing, and serves the result over
BEAST, AVR, raw-hex, SBS-1 and WebSocket sinks.

Example usage:
  adsbfeed --frequency 1090000000 --sample-rate 2400000 --gain 40 --device 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}

			application := app.NewApplication(config)
			return application.Start()
		},
	}

	flags := rootCmd.Flags()
	flags.Uint32VarP(&config.Frequency, "frequency", "f", config.Frequency, "Frequency to tune to (Hz)")
	flags.Uint32VarP(&config.SampleRate, "sample-rate", "s", config.SampleRate, "Sample rate (Hz), minimum 2 Msps")
	flags.IntVarP(&config.Gain, "gain", "g", config.Gain, "Gain setting (0 for auto)")
	flags.IntVarP(&config.DeviceIndex, "device", "d", 0, "RTL-SDR device index")
	flags.StringVar(&config.CaptureFile, "capture-file", "", "Replay IQ samples from this file instead of a device")

	flags.StringVarP(&config.LogDir, "log-dir", "l", config.LogDir, "Log directory")
	flags.BoolVarP(&config.LogRotateUTC, "utc", "u", config.LogRotateUTC, "Use UTC for log rotation")
	flags.IntVar(&config.LogMaxDays, "log-max-days", config.LogMaxDays, "Days of rotated logs to retain")
	flags.BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose logging")
	flags.BoolVar(&config.ShowVersion, "version", false, "Show version information")

	flags.Float64Var(&config.DetectorThreshold, "detector-threshold", config.DetectorThreshold, "Preamble correlator threshold, relative to the noise floor")
	flags.DurationVar(&config.PruneAfter, "prune-after", config.PruneAfter, "Drop an aircraft after this long without a message")

	flags.BoolVar(&config.EnableBeast, "beast", config.EnableBeast, "Enable the BEAST binary sink")
	flags.IntVar(&config.BeastPort, "beast-port", config.BeastPort, "BEAST sink TCP port")
	flags.BoolVar(&config.EnableAVR, "avr", config.EnableAVR, "Enable the AVR text sink")
	flags.IntVar(&config.AVRPort, "avr-port", config.AVRPort, "AVR sink TCP port")
	flags.BoolVar(&config.EnableRawHex, "raw-hex", config.EnableRawHex, "Enable the raw-hex text sink")
	flags.IntVar(&config.RawHexPort, "raw-hex-port", config.RawHexPort, "Raw-hex sink TCP port")
	flags.BoolVar(&config.EnableSBS1, "sbs1", config.EnableSBS1, "Enable the SBS-1/BaseStation sink")
	flags.IntVar(&config.SBS1Port, "sbs1-port", config.SBS1Port, "SBS-1 sink TCP port")
	flags.BoolVar(&config.EnableWebSocket, "websocket", config.EnableWebSocket, "Enable the WebSocket sink")
	flags.IntVar(&config.WebSocketPort, "websocket-port", config.WebSocketPort, "WebSocket sink TCP port")

	flags.BoolVar(&config.EnableControlPort, "control-port", config.EnableControlPort, "Enable the loopback control port")
	flags.IntVar(&config.ControlPort, "control-port-number", config.ControlPort, "Control port TCP port (loopback only)")

	flags.BoolVar(&config.EnableMetrics, "metrics", false, "Enable the Prometheus /metrics endpoint")
	flags.IntVar(&config.MetricsPort, "metrics-port", config.MetricsPort, "Metrics endpoint TCP port")

	flags.DurationVar(&config.RateLimit.PositionInterval, "rate-limit-position", config.RateLimit.PositionInterval, "Minimum interval between position updates per aircraft")
	flags.DurationVar(&config.RateLimit.VelocityInterval, "rate-limit-velocity", config.RateLimit.VelocityInterval, "Minimum interval between velocity updates per aircraft")
	flags.DurationVar(&config.RateLimit.IdentificationInterval, "rate-limit-identification", config.RateLimit.IdentificationInterval, "Minimum interval between identification updates per aircraft (0 disables)")
	flags.DurationVar(&config.RateLimit.MetadataInterval, "rate-limit-metadata", config.RateLimit.MetadataInterval, "Minimum interval between metadata updates per aircraft")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
