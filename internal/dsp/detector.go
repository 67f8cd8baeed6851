package dsp

import "time"

// DetectorConfig tunes the preamble detector's amplitude threshold, guard
// band and cooldown. Threshold is CLI-tunable per spec.
type DetectorConfig struct {
	// Threshold is the amplitude-relative-to-noise-floor multiplier: a
	// detection requires c[i] > Threshold * nf[i].
	Threshold float32
	// GuardBand is the half-width, in samples, of the local-maximum
	// window checked before firing.
	GuardBand int
	// Cooldown is the minimum number of samples between two detections.
	Cooldown int
}

// DefaultDetectorConfig mirrors typical dump1090-class tuning: a power
// ratio of 2 (about 3 dB) over the noise floor, a guard band wide enough to cover
// one preamble, and a cooldown of one preamble length.
func DefaultDetectorConfig(samplesPerUS int) DetectorConfig {
	n := PreambleLenSamples(samplesPerUS)
	return DetectorConfig{
		Threshold: 2.0,
		GuardBand: n / 2,
		Cooldown:  n,
	}
}

// Detector consumes synchronized x2/nf/c streams sharing the same sample
// index domain and emits PreambleWindow values for the demodulator.
type Detector struct {
	cfg         DetectorConfig
	correlator  *Correlator
	sampleIndex uint64
	lastFire    int64 // sample index of the previous fire, -1 if none

	// Counters: windows emitted, and Detect calls that emitted no window.
	// Neither the control port nor the metrics endpoint reports them.
	WindowsEmitted  uint64
	ThresholdMisses uint64
}

// NewDetector builds a detector bound to correlator's window length.
func NewDetector(cfg DetectorConfig, correlator *Correlator) *Detector {
	return &Detector{cfg: cfg, correlator: correlator, lastFire: -1}
}

// Detect scans one synchronized chunk of (x2, nf, c) — already aligned to
// the same sample-index domain by the caller, which is responsible for
// keeping FIR group delay equal on every branch — and returns zero or more
// preamble windows. now is stamped on every emitted window.
func (d *Detector) Detect(x2, nf, c []float32, now time.Time) []PreambleWindow {
	windowLen := d.correlator.WindowLen()
	var out []PreambleWindow

	n := len(c)
	for i := 0; i < n; i++ {
		idx := int64(d.sampleIndex) + int64(i)

		if d.lastFire >= 0 && idx-d.lastFire < int64(d.cfg.Cooldown) {
			continue
		}
		if c[i] <= d.cfg.Threshold*nf[i] {
			continue
		}
		if !d.isLocalMax(c, i) {
			continue
		}

		if i+windowLen > len(x2) {
			// Not enough trailing samples in this chunk for a full
			// window: this candidate is dropped and scanning stops
			// for this call. No samples are carried over, so the
			// next call does not revisit this region.
			break
		}

		out = append(out, PreambleWindow{
			Magnitude:   append([]float32(nil), x2[i:i+windowLen]...),
			SampleIndex: uint64(idx),
			Correlation: c[i],
			NoiseFloor:  nf[i],
			Timestamp:   now,
		})
		d.lastFire = idx
		d.WindowsEmitted++
	}

	if len(out) == 0 {
		d.ThresholdMisses++
	}
	d.sampleIndex += uint64(n)
	return out
}

// isLocalMax reports whether c[i] is the maximum value within +/-GuardBand
// samples of i, preventing multiple detections for the same preamble.
func (d *Detector) isLocalMax(c []float32, i int) bool {
	lo := i - d.cfg.GuardBand
	if lo < 0 {
		lo = 0
	}
	hi := i + d.cfg.GuardBand
	if hi >= len(c) {
		hi = len(c) - 1
	}
	for j := lo; j <= hi; j++ {
		if j != i && c[j] > c[i] {
			return false
		}
	}
	return true
}
