// Package convergence detects score plateaus over a trailing window. It is a
// stagnation detector, not a "reached target" detector: it fires whether the
// plateau sits at a good or a bad score, and the orchestrator combines it
// with the proposer's own stop signal.
package convergence

import "screen-agent/internal/domain/entity"

const (
	DefaultWindowSize = 5
	DefaultThreshold  = 0.001
)

type Detector struct {
	window    []float64
	size      int
	threshold float64
}

func NewDetector(windowSize int, threshold float64) *Detector {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{
		window:    make([]float64, 0, windowSize),
		size:      windowSize,
		threshold: threshold,
	}
}

// FromPolicy builds a detector with the configured window and threshold.
func FromPolicy(p entity.Policy) *Detector {
	return NewDetector(p.ConvergenceWindow, p.ConvergenceThreshold)
}

// Observe records one overall score and reports whether the recent trend has
// plateaued. Always false until the window is full; afterwards true when
// max-min over the window is below the threshold.
func (d *Detector) Observe(overallScore float64) bool {
	d.window = append(d.window, overallScore)
	if len(d.window) > d.size {
		d.window = d.window[1:]
	}
	if len(d.window) < d.size {
		return false
	}

	lo, hi := d.window[0], d.window[0]
	for _, v := range d.window[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi-lo < d.threshold
}

// Reset empties the window for a new run.
func (d *Detector) Reset() {
	d.window = d.window[:0]
}
