package overlap

import "math"

// DOC returns the demand overlap coefficient of two time-aligned profiles:
//
//	DOC = 2 * Σ min(h_t, c_t) / Σ (h_t + c_t)
//
// It is 1 for identical profiles and 0 when heating and cooling never occur
// in the same timestep.
func DOC(heat, cool Profile) (float64, error) {
	if err := validatePair(heat, cool); err != nil {
		return 0, err
	}
	return coefficient(balanced(heat, cool).Total(), heat.Total()+cool.Total())
}

// DurationDOC applies the DOC formula to the duration curves of both
// profiles. The result only depends on the distribution of each profile, not
// on the order of its samples, and is never lower than DOC.
func DurationDOC(heat, cool Profile) (float64, error) {
	if err := validatePair(heat, cool); err != nil {
		return 0, err
	}
	h := Profile(durationCurve(heat).Values)
	c := Profile(durationCurve(cool).Values)
	return coefficient(balanced(h, c).Total(), h.Total()+c.Total())
}

// Balanced returns the pointwise minimum of heating and cooling demand, the
// part of both demands that can be balanced against each other.
func Balanced(heat, cool Profile) (Profile, error) {
	if err := validatePair(heat, cool); err != nil {
		return nil, err
	}
	return balanced(heat, cool), nil
}

func balanced(heat, cool Profile) Profile {
	out := make(Profile, len(heat))
	for t := range heat {
		out[t] = math.Min(heat[t], cool[t])
	}
	return out
}

func coefficient(overlap, total float64) (float64, error) {
	if total == 0 {
		return 0, ErrNoDemand
	}
	// rounding in the sums may push an exact overlap marginally above 1
	return math.Min(2*overlap/total, 1), nil
}
