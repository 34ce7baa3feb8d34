package profile

import (
	"math"

	"github.com/Agrid-Dev/docalc/internal/district"
	"github.com/Agrid-Dev/docalc/internal/overlap"
)

// HoursPerYear is the length of an hourly annual profile.
const HoursPerYear = 8760

// Seasonal returns offset + amplitude*sin(2πt/steps + phase) for each step,
// clipped at zero.
func Seasonal(steps int, amplitude, phase, offset float64) overlap.Profile {
	p := make(overlap.Profile, steps)
	for t := range p {
		p[t] = math.Max(0, offset+amplitude*math.Sin(float64(t)/float64(steps)*2*math.Pi+phase))
	}
	return p
}

func Constant(steps int, value float64) overlap.Profile {
	p := make(overlap.Profile, steps)
	for t := range p {
		p[t] = value
	}
	return p
}

// ExampleBuildings returns two buildings: one with opposed seasonal heating
// and cooling demand, one with flat heating and cooling demand.
func ExampleBuildings(steps int) []district.Building {
	return []district.Building{
		{
			Name: "building-1",
			Heat: Seasonal(steps, 1, math.Pi/2, 1),
			Cool: Seasonal(steps, 1, -math.Pi/2, 1),
		},
		{
			Name: "building-2",
			Heat: Constant(steps, 1),
			Cool: Constant(steps, 2),
		},
	}
}
