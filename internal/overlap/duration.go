package overlap

import "sort"

// DurationCurve holds the values of a profile sorted in descending order,
// each paired with its position on the normalized duration axis.
type DurationCurve struct {
	Values    []float64
	Fractions []float64 // (rank+1)/count, in (0,1]
}

func NewDurationCurve(p Profile) (DurationCurve, error) {
	if err := p.Validate(); err != nil {
		return DurationCurve{}, err
	}
	return durationCurve(p), nil
}

func durationCurve(p Profile) DurationCurve {
	n := len(p)
	values := make([]float64, n)
	copy(values, p)
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	fractions := make([]float64, n)
	for i := range fractions {
		fractions[i] = float64(i+1) / float64(n)
	}
	return DurationCurve{Values: values, Fractions: fractions}
}

func (c DurationCurve) Len() int {
	return len(c.Values)
}

// Area under the curve over the normalized duration axis, i.e. the mean demand.
func (c DurationCurve) Area() float64 {
	if len(c.Values) == 0 {
		return 0
	}
	return Profile(c.Values).Total() / float64(len(c.Values))
}
