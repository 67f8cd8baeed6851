// Package logging provides a daily-rotating, gzip-compressing log writer,
// used by the receiver for its rotating SBS-1 state log.
package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// filePrefix names every rotated log file adsb_YYYY-MM-DD.log.
const filePrefix = "adsb"

// LogRotator writes to a single file named for the current date,
// gzip-compressing the previous day's file once the date rolls over.
type LogRotator struct {
	logDir string
	useUTC bool
	logger *logrus.Logger

	mu          sync.Mutex
	currentDate string
	currentFile string
	file        *os.File
	closed      bool
}

// NewLogRotator creates logDir if needed and opens today's log file.
func NewLogRotator(logDir string, useUTC bool, logger *logrus.Logger) (*LogRotator, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	r := &LogRotator{logDir: logDir, useUTC: useUTC, logger: logger}
	if err := r.rotateLogFile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *LogRotator) now() time.Time {
	if r.useUTC {
		return time.Now().UTC()
	}
	return time.Now()
}

func (r *LogRotator) dateString() string {
	return r.now().Format("2006-01-02")
}

// GetWriter returns the current day's file, rotating first if the date
// has changed since the last write.
func (r *LogRotator) GetWriter() (io.Writer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("log rotator is closed")
	}

	today := r.dateString()
	if today != r.currentDate {
		if err := r.rotateLocked(); err != nil {
			return nil, err
		}
	}
	return r.file, nil
}

// GetCurrentLogFile returns the path of the file currently being written.
func (r *LogRotator) GetCurrentLogFile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentFile
}

// rotateLogFile opens (or reopens) today's log file, compressing
// yesterday's file in the background if this is a genuine date change.
func (r *LogRotator) rotateLogFile() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotateLocked()
}

func (r *LogRotator) rotateLocked() error {
	today := r.dateString()
	previousDate := r.currentDate

	path := filepath.Join(r.logDir, fmt.Sprintf("%s_%s.log", filePrefix, today))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	if r.file != nil {
		r.file.Close()
	}
	r.file = f
	r.currentFile = path
	r.currentDate = today

	if previousDate != "" && previousDate != today {
		go r.compressLogFile(previousDate)
	}
	return nil
}

// compressLogFile gzips the log file for date and removes the original,
// logging but not failing the caller on error since compression is best
// effort.
func (r *LogRotator) compressLogFile(date string) {
	src := filepath.Join(r.logDir, fmt.Sprintf("%s_%s.log", filePrefix, date))
	dst := src + ".gz"

	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		r.logger.WithError(err).Warn("failed to create compressed log file")
		return
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		r.logger.WithError(err).Warn("failed to compress log file")
		gw.Close()
		return
	}
	if err := gw.Close(); err != nil {
		r.logger.WithError(err).Warn("failed to finalize compressed log file")
		return
	}

	in.Close()
	if err := os.Remove(src); err != nil {
		r.logger.WithError(err).Warn("failed to remove uncompressed log file after compression")
	}
}

// GetLogFiles lists every log file (rotated or current, compressed or
// not) in logDir.
func (r *LogRotator) GetLogFiles() ([]string, error) {
	entries, err := os.ReadDir(r.logDir)
	if err != nil {
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(r.logDir, e.Name()))
	}
	return files, nil
}

// CleanupOldLogs removes log files whose modification time is older than
// maxDays.
func (r *LogRotator) CleanupOldLogs(maxDays int) error {
	if maxDays <= 0 {
		return fmt.Errorf("maxDays must be positive")
	}

	files, err := r.GetLogFiles()
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -maxDays)
	for _, path := range files {
		if path == r.GetCurrentLogFile() {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				r.logger.WithError(err).WithField("file", path).Warn("failed to remove old log file")
			}
		}
	}
	return nil
}

// Close closes the current log file. After Close, GetWriter returns an
// error.
func (r *LogRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
