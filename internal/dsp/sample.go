// Package dsp implements the leaf end of the receive pipeline: resampling
// raw IQ to the fixed demodulation rate, magnitude-squared conversion,
// noise-floor estimation, preamble correlation and preamble detection.
package dsp

import "time"

// Sample is a single complex baseband IQ sample.
type Sample complex64

// PreambleWindow is emitted by the Detector for every candidate Mode-S
// preamble. It carries exactly enough magnitude-squared samples to cover
// the preamble plus a 112-bit long frame at the demod rate.
type PreambleWindow struct {
	// Magnitude holds |x|^2 samples starting at the preamble.
	Magnitude []float32
	// SampleIndex is the causal sample index of Magnitude[0], used to
	// order detections and to derive BEAST timestamps.
	SampleIndex uint64
	// Correlation is the correlator output c[i] that triggered the fire.
	Correlation float32
	// NoiseFloor is the smoothed noise floor nf[i] at the fire point.
	NoiseFloor float32
	// Timestamp is the wall-clock time the window was produced.
	Timestamp time.Time
}
