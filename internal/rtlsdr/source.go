package rtlsdr

import "context"

// Source is anything that can stream raw interleaved 8-bit IQ bytes into
// dataChan, whether a live RTL-SDR device or a recorded capture file.
type Source interface {
	Configure(frequency, sampleRate uint32, gain int) error
	StartCapture(ctx context.Context, dataChan chan<- []byte) error
	Close() error
}

var (
	_ Source = (*RTLSDRDevice)(nil)
	_ Source = (*FileSource)(nil)
)
