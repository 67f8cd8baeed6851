package rtlsdr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// FileSource replays a recorded interleaved 8-bit IQ capture file as if
// it were a live device, throttling reads to the configured sample rate
// so downstream backpressure behaves the same as with a real dongle.
type FileSource struct {
	path       string
	logger     *logrus.Logger
	file       *os.File
	sampleRate uint32
}

// NewFileSource opens path for reading; Configure sets the sample rate
// used to pace playback.
func NewFileSource(path string, logger *logrus.Logger) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	return &FileSource{path: path, logger: logger, file: f}, nil
}

// Configure records the playback sample rate; frequency and gain are
// meaningless for a file and are accepted only to satisfy Source.
func (f *FileSource) Configure(_ uint32, sampleRate uint32, _ int) error {
	if sampleRate == 0 {
		return errors.New("sample rate must be positive")
	}
	f.sampleRate = sampleRate
	return nil
}

// StartCapture streams BufferChunkSize-sized chunks from the file at a
// rate matching sampleRate (2 bytes per IQ sample), closing dataChan's
// producer loop when the file is exhausted or ctx is canceled.
func (f *FileSource) StartCapture(ctx context.Context, dataChan chan<- []byte) error {
	chunkSamples := BufferChunkSize / 2
	chunkDuration := time.Duration(float64(chunkSamples)/float64(f.sampleRate)*1e9) * time.Nanosecond

	buf := make([]byte, BufferChunkSize)
	ticker := time.NewTicker(chunkDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := f.file.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case dataChan <- chunk:
				case <-ctx.Done():
					return nil
				}
			}
			if err != nil {
				if err == io.EOF {
					f.logger.Info("capture file playback complete")
					return nil
				}
				return fmt.Errorf("read capture file: %w", err)
			}
		}
	}
}

// Close closes the underlying file.
func (f *FileSource) Close() error {
	return f.file.Close()
}
