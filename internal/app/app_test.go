package app

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, uint32(DefaultFrequency), c.Frequency)
	assert.Equal(t, uint32(DefaultSampleRate), c.SampleRate)
	assert.Equal(t, DefaultGain, c.Gain)
	assert.NoError(t, c.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"low sample rate without capture file rejected", func(c *Config) {
			c.SampleRate = 1000000
		}, true},
		{"low sample rate allowed with capture file", func(c *Config) {
			c.SampleRate = 1000000
			c.CaptureFile = "test.iq"
		}, false},
		{"threshold must exceed 1.0", func(c *Config) {
			c.DetectorThreshold = 1.0
		}, true},
		{"non-positive log max days rejected", func(c *Config) {
			c.LogMaxDays = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShowVersion(t *testing.T) {
	assert.NotPanics(t, func() {
		ShowVersion()
	})
}

func TestNewApplication(t *testing.T) {
	config := DefaultConfig()
	config.LogDir = "./test_logs"

	application := NewApplication(config)
	assert.NotNil(t, application)
	assert.NotNil(t, application.logger)
}

func TestBytesToIQ(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		expectedLen int
	}{
		{"empty input", []byte{}, 0},
		{"single I/Q pair", []byte{0x80, 0x80}, 1},
		{"multiple I/Q pairs", []byte{0x80, 0x80, 0x7F, 0x7F, 0x81, 0x81}, 3},
		{"odd trailing byte ignored", []byte{0x80, 0x80, 0x7F}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := bytesToIQ(tt.input)
			assert.Equal(t, tt.expectedLen, len(result))
			if len(result) > 0 {
				assert.InDelta(t, 0.0, real(result[0]), 1.0)
				assert.InDelta(t, 0.0, imag(result[0]), 1.0)
			}
		})
	}
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.RemoveAll("./test_logs")
	os.Exit(code)
}
