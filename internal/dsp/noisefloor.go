package dsp

import "gonum.org/v1/gonum/floats"

// NoiseFloorTaps is the width of the boxcar moving-average window used to
// smooth the magnitude-squared stream into a noise-floor estimate.
const NoiseFloorTaps = 32

// NoiseFloor computes a running 32-tap boxcar average of x2, continuing
// the window across successive calls so that streaming chunks behave as
// one continuous estimator.
type NoiseFloor struct {
	window []float32
	sum    float64
}

// NewNoiseFloor creates a noise-floor estimator with an empty window.
func NewNoiseFloor() *NoiseFloor {
	return &NoiseFloor{window: make([]float32, 0, NoiseFloorTaps)}
}

// Estimate appends x2 to the running window and returns, for every input
// sample, the boxcar average nf[i] aligned to x2[i].
func (n *NoiseFloor) Estimate(x2 []float32) []float32 {
	out := make([]float32, len(x2))
	for i, v := range x2 {
		if len(n.window) == NoiseFloorTaps {
			n.sum -= float64(n.window[0])
			n.window = n.window[1:]
		}
		n.window = append(n.window, v)
		n.sum += float64(v)

		if len(n.window) == NoiseFloorTaps {
			out[i] = float32(floats.Sum(toFloat64(n.window)) / NoiseFloorTaps)
		} else {
			out[i] = float32(n.sum / float64(len(n.window)))
		}
	}
	return out
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
