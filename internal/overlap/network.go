package overlap

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Sum adds profiles of equal length element by element.
func Sum(profiles ...Profile) (Profile, error) {
	if len(profiles) == 0 {
		return nil, ErrNoBuildings
	}
	out := make(Profile, len(profiles[0]))
	for i, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %d: %w", i, err)
		}
		if len(p) != len(out) {
			return nil, fmt.Errorf("%w: profile %d has %d steps, want %d", ErrLengthMismatch, i, len(p), len(out))
		}
		floats.Add(out, p)
	}
	return out, nil
}

// MeanBESDOC is the demand-weighted mean of the DOCs of individual
// buildings: overlap is only counted inside each building.
func MeanBESDOC(heats, cools []Profile) (float64, error) {
	if err := validateBuildings(heats, cools); err != nil {
		return 0, err
	}
	var overlap, total float64
	for b := range heats {
		overlap += balanced(heats[b], cools[b]).Total()
		total += heats[b].Total() + cools[b].Total()
	}
	return coefficient(overlap, total)
}

// NetworkDOC measures how well demands balance across buildings once they
// are summed on the network.
func NetworkDOC(heats, cools []Profile) (float64, error) {
	if err := validateBuildings(heats, cools); err != nil {
		return 0, err
	}
	heat, err := Sum(heats...)
	if err != nil {
		return 0, err
	}
	cool, err := Sum(cools...)
	if err != nil {
		return 0, err
	}
	return coefficient(balanced(heat, cool).Total(), heat.Total()+cool.Total())
}

func validateBuildings(heats, cools []Profile) error {
	if len(heats) == 0 || len(cools) == 0 {
		return ErrNoBuildings
	}
	if len(heats) != len(cools) {
		return fmt.Errorf("%w: %d heating and %d cooling profiles", ErrLengthMismatch, len(heats), len(cools))
	}
	steps := len(heats[0])
	for b := range heats {
		if err := validatePair(heats[b], cools[b]); err != nil {
			return fmt.Errorf("building %d: %w", b, err)
		}
		if len(heats[b]) != steps {
			return fmt.Errorf("%w: building %d has %d steps, want %d", ErrLengthMismatch, b, len(heats[b]), steps)
		}
	}
	return nil
}
