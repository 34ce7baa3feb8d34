package overlap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Profile is a demand time series with equal-interval timesteps.
type Profile []float64

func (p Profile) Validate() error {
	if len(p) == 0 {
		return ErrEmptyProfile
	}
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at step %d", ErrNotFinite, i)
		}
		if v < 0 {
			return fmt.Errorf("%w at step %d: %g", ErrNegativeDemand, i, v)
		}
	}
	return nil
}

// Total is the summed demand over all timesteps.
func (p Profile) Total() float64 {
	return floats.Sum(p)
}

func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	copy(out, p)
	return out
}

func validatePair(heat, cool Profile) error {
	if err := heat.Validate(); err != nil {
		return fmt.Errorf("heating: %w", err)
	}
	if err := cool.Validate(); err != nil {
		return fmt.Errorf("cooling: %w", err)
	}
	if len(heat) != len(cool) {
		return fmt.Errorf("%w: heating %d, cooling %d", ErrLengthMismatch, len(heat), len(cool))
	}
	return nil
}
