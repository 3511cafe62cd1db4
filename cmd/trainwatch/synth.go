package main

import (
	"fmt"
	"math"
	"math/rand"
)

// lossShape names a synthetic loss trajectory.
type lossShape string

const (
	shapeDecay     lossShape = "decay"
	shapePlateau   lossShape = "plateau"
	shapeDiverge   lossShape = "diverge"
	shapeOscillate lossShape = "oscillate"
	shapeNaN       lossShape = "nan"
)

// synthStep produces per-batch loss values following a named trajectory,
// with seeded noise so runs are reproducible.
type synthStep struct {
	shape lossShape
	rng   *rand.Rand
	noise float64
}

func newSynthStep(shape string, seed int64, noise float64) (*synthStep, error) {
	switch lossShape(shape) {
	case shapeDecay, shapePlateau, shapeDiverge, shapeOscillate, shapeNaN:
	default:
		return nil, fmt.Errorf("unknown loss shape %q (want decay, plateau, diverge, oscillate or nan)", shape)
	}
	return &synthStep{
		shape: lossShape(shape),
		rng:   rand.New(rand.NewSource(seed)),
		noise: noise,
	}, nil
}

// step returns the loss for the given epoch and batch.
func (s *synthStep) step(epoch, batch int) (float64, error) {
	t := float64(epoch)
	jitter := (s.rng.Float64() - 0.5) * s.noise

	switch s.shape {
	case shapeDecay:
		return 2.0*math.Exp(-0.3*t) + 0.05 + jitter, nil
	case shapePlateau:
		if epoch < 5 {
			return 2.0*math.Exp(-0.5*t) + 0.2 + jitter, nil
		}
		return 0.2 + jitter, nil
	case shapeDiverge:
		if epoch < 4 {
			return 2.0 - 0.3*t + jitter, nil
		}
		return 0.8 + 0.25*(t-4) + jitter, nil
	case shapeOscillate:
		return 1.0 + 0.4*math.Pow(-1, t) + jitter, nil
	case shapeNaN:
		if epoch >= 6 && batch == 0 {
			return math.NaN(), nil
		}
		return 2.0*math.Exp(-0.3*t) + 0.05 + jitter, nil
	default:
		return 0, fmt.Errorf("unknown loss shape %q", s.shape)
	}
}
