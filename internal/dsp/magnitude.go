package dsp

// MagnitudeSquared converts a slice of IQ samples to |x|^2, matching
// dump1090's approach of working on magnitude rather than raw IQ from the
// preamble correlator onward (see the teacher's calculateMagnitude).
func MagnitudeSquared(samples []Sample) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		re, im := real(s), imag(s)
		out[i] = re*re + im*im
	}
	return out
}
