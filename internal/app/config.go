package app

import (
	"fmt"
	"time"

	"adsbfeed/internal/ratelimit"
)

// Default configuration constants.
const (
	DefaultFrequency  = 1090000000 // 1090 MHz
	DefaultSampleRate = 2400000    // 2.4 MHz (same as dump1090)
	DefaultGain       = 40         // Manual gain

	DefaultBeastPort     = 30005
	DefaultAVRPort       = 30001
	DefaultRawHexPort    = 30002
	DefaultSBS1Port      = 30003
	DefaultWebSocketPort = 30008
	DefaultControlPort   = 30004
	DefaultMetricsPort   = 6060

	DefaultPruneAfter        = 5 * time.Minute
	DefaultDetectorThreshold = 2.0
	DefaultLogMaxDays        = 30
)

// Config holds application configuration.
type Config struct {
	Frequency   uint32
	SampleRate  uint32
	Gain        int
	DeviceIndex int
	CaptureFile string // if set, read IQ from this file instead of a device

	LogDir       string
	LogRotateUTC bool
	LogMaxDays   int
	Verbose      bool
	ShowVersion  bool

	DetectorThreshold float64
	PruneAfter        time.Duration

	EnableBeast     bool
	EnableAVR       bool
	EnableRawHex    bool
	EnableSBS1      bool
	EnableWebSocket bool
	BeastPort       int
	AVRPort         int
	RawHexPort      int
	SBS1Port        int
	WebSocketPort   int

	EnableControlPort bool
	ControlPort       int

	EnableMetrics bool
	MetricsPort   int

	RateLimit ratelimit.Config
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		Frequency:         DefaultFrequency,
		SampleRate:        DefaultSampleRate,
		Gain:              DefaultGain,
		LogDir:            "logs",
		LogMaxDays:        DefaultLogMaxDays,
		DetectorThreshold: DefaultDetectorThreshold,
		PruneAfter:        DefaultPruneAfter,
		EnableBeast:       true,
		EnableAVR:         true,
		EnableRawHex:      true,
		EnableSBS1:        true,
		EnableWebSocket:   true,
		BeastPort:         DefaultBeastPort,
		AVRPort:           DefaultAVRPort,
		RawHexPort:        DefaultRawHexPort,
		SBS1Port:          DefaultSBS1Port,
		WebSocketPort:     DefaultWebSocketPort,
		EnableControlPort: true,
		ControlPort:       DefaultControlPort,
		MetricsPort:       DefaultMetricsPort,
		RateLimit:         ratelimit.DefaultConfig(),
	}
}

// Validate checks invariants flag parsing alone can't enforce.
func (c Config) Validate() error {
	if c.CaptureFile == "" && c.SampleRate < 2000000 {
		return fmt.Errorf("sample rate must be at least 2 Msps, got %d", c.SampleRate)
	}
	if c.DetectorThreshold <= 1.0 {
		return fmt.Errorf("detector threshold must exceed 1.0, got %.2f", c.DetectorThreshold)
	}
	if c.LogMaxDays <= 0 {
		return fmt.Errorf("log max days must be positive, got %d", c.LogMaxDays)
	}
	return nil
}
