package dsp

import (
	"math"
	"math/big"

	"github.com/sirupsen/logrus"
)

// Resampler converts an arbitrary device sample rate (>= 2 Msps) to the
// fixed demodulation rate via rational L/M polyphase FIR interpolation and
// decimation, preserving causal sample ordering.
type Resampler struct {
	logger *logrus.Logger

	l, m int // interpolate by L, decimate by M, in lowest terms

	// phase is the running polyphase phase accumulator across calls so
	// that consecutive chunks resample as if they were one stream.
	phase int
	// history holds the tail of the previous input chunk needed to
	// produce the first few interpolated samples of the next chunk.
	history []Sample
	taps    []float32
}

// NewResampler builds a resampler from deviceRate to demodRate. Both rates
// must be positive; L or M > 100 is logged as a warning (the polyphase
// filter bank grows with L) but construction still succeeds.
func NewResampler(deviceRate, demodRate uint32, logger *logrus.Logger) *Resampler {
	l, m := reduceRatio(int(demodRate), int(deviceRate))

	if l > 100 || m > 100 {
		logger.WithFields(logrus.Fields{
			"L": l,
			"M": m,
		}).Warn("resampler ratio requires a large polyphase filter bank")
	}

	return &Resampler{
		logger: logger,
		l:      l,
		m:      m,
		taps:   designLowpassTaps(l, m),
	}
}

// reduceRatio reduces num/den to lowest terms using math/big's GCD, the
// standard-library way to do this rather than hand-rolling Euclid's
// algorithm (no ecosystem GCD helper fits a pair of plain ints better).
func reduceRatio(num, den int) (int, int) {
	if num <= 0 || den <= 0 {
		return 1, 1
	}
	g := new(big.Int).GCD(nil, nil, big.NewInt(int64(num)), big.NewInt(int64(den)))
	div := g.Int64()
	if div == 0 {
		div = 1
	}
	return num / int(div), den / int(div)
}

// designLowpassTaps builds a simple windowed-sinc lowpass FIR sized to the
// interpolation factor L, cut at the lower of the two Nyquist rates.
func designLowpassTaps(l, m int) []float32 {
	n := l * 8
	if n < 8 {
		n = 8
	}
	if n > 800 {
		n = 800
	}
	cutoff := 1.0 / float64(maxInt(l, m))
	taps := make([]float32, n)
	center := float64(n-1) / 2
	var sum float64
	for i := 0; i < n; i++ {
		x := float64(i) - center
		var v float64
		if x == 0 {
			v = cutoff
		} else {
			v = sinc(cutoff*x) * cutoff
		}
		// Hamming window.
		v *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		taps[i] = float32(v)
		sum += v
	}
	if sum != 0 {
		for i := range taps {
			taps[i] = float32(float64(taps[i]) / sum)
		}
	}
	return taps
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// Resample converts in at the device rate to the demod rate, continuing
// the polyphase phase and filter history across successive calls.
func (r *Resampler) Resample(in []Sample) []Sample {
	if r.l == r.m {
		return in
	}

	work := append(append([]Sample(nil), r.history...), in...)

	out := make([]Sample, 0, len(in)*r.l/r.m+1)
	for {
		srcPos := r.phase / r.l
		subphase := r.phase % r.l
		if srcPos+len(r.taps)/r.l >= len(work) {
			break
		}
		out = append(out, r.polyphaseTap(work, srcPos, subphase))
		r.phase += r.m
	}

	consumed := r.phase / r.l
	r.phase %= r.l
	if consumed > len(work) {
		consumed = len(work)
	}
	tailStart := consumed
	if tailStart > len(work) {
		tailStart = len(work)
	}
	r.history = append([]Sample(nil), work[tailStart:]...)

	return out
}

func (r *Resampler) polyphaseTap(work []Sample, pos, subphase int) Sample {
	var accI, accQ float32
	for k := 0; k*r.l+subphase < len(r.taps) && pos+k < len(work); k++ {
		tap := r.taps[k*r.l+subphase]
		s := work[pos+k]
		accI += tap * real(s)
		accQ += tap * imag(s)
	}
	return Sample(complex(accI, accQ))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
