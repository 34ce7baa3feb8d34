package district

import "github.com/Agrid-Dev/docalc/internal/overlap"

// Building is one consumer connected to the network.
type Building struct {
	Name string
	Heat overlap.Profile
	Cool overlap.Profile
}

type BuildingReport struct {
	Name string
	// BESDOC is 0 when the building energy system has no demand at all.
	BESDOC float64
}

// Report is the result of one evaluation. Its slices are shared between
// readers and must not be modified.
type Report struct {
	DistrictID  string
	Steps       int
	DistrictDOC float64
	DurationDOC float64
	MeanBESDOC  float64
	NetworkDOC  float64
	Buildings   []BuildingReport

	// Summed district demand, used for plotting.
	Heat      overlap.Profile
	Cool      overlap.Profile
	Balanced  overlap.Profile
	HeatCurve overlap.DurationCurve
	CoolCurve overlap.DurationCurve
}
