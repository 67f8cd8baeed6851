package dsp

// Mode-S preamble pulse positions, in microseconds from the start of the
// preamble: four 0.5us pulses at 0, 1.0, 3.5 and 4.5us, each contributing
// two half-symbol samples; everything else in the 8us preamble is idle.
var preamblePulseUS = []float64{0.0, 1.0, 3.5, 4.5}

// PreambleLenSamples is the number of demod-rate samples spanned by the
// 8us Mode-S preamble.
func PreambleLenSamples(samplesPerUS int) int {
	return 8 * samplesPerUS
}

// Correlator holds the FIR taps matched to the preamble pulse shape at the
// demod rate and computes the correlation stream c[i].
type Correlator struct {
	taps         []float32
	samplesPerUS int
}

// NewCorrelator builds a correlator for a demod rate expressed as samples
// per microsecond (e.g. 4 for 4 Msps, 2 samples per half-us half-symbol).
func NewCorrelator(samplesPerUS int) *Correlator {
	n := PreambleLenSamples(samplesPerUS)
	taps := make([]float32, n)

	pulseWidth := samplesPerUS / 2
	if pulseWidth < 1 {
		pulseWidth = 1
	}
	for _, us := range preamblePulseUS {
		start := int(us * float64(samplesPerUS))
		for k := 0; k < pulseWidth && start+k < n; k++ {
			taps[start+k] = 1
		}
	}

	// Normalize the taps to sum to 1, so the output is the mean x2 over the
	// pulse positions: pure noise correlates to about the noise power and a
	// unit-power preamble correlates to 1.
	var sum float32
	for _, t := range taps {
		sum += t
	}
	if sum > 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}

	return &Correlator{taps: taps, samplesPerUS: samplesPerUS}
}

// Correlate runs the matched filter over x2 (magnitude-squared samples),
// returning one output per input sample (zero-padded at the tail where a
// full window isn't available).
func (c *Correlator) Correlate(x2 []float32) []float32 {
	n := len(c.taps)
	out := make([]float32, len(x2))
	for i := 0; i+n <= len(x2); i++ {
		var acc float32
		for k, tap := range c.taps {
			acc += tap * x2[i+k]
		}
		out[i] = acc
	}
	return out
}

// WindowLen is the number of magnitude-squared samples a detected window
// must contain: the preamble itself plus up to 112 data bits, each bit
// being two half-symbols of samplesPerUS/2 samples.
func (c *Correlator) WindowLen() int {
	halfSymbol := c.samplesPerUS / 2
	if halfSymbol < 1 {
		halfSymbol = 1
	}
	return len(c.taps) + 112*2*halfSymbol
}
