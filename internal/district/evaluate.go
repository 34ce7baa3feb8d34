package district

import (
	"errors"
	"fmt"

	"github.com/Agrid-Dev/docalc/internal/overlap"
)

// Evaluate computes every DOC variant for a set of buildings.
//
// District and duration DOC are taken on the summed raw demands. The BES
// DOCs use the demands seen by each building energy system, and the network
// DOC uses what remains after each building balanced itself.
func Evaluate(id string, cop overlap.COP, buildings []Building) (Report, error) {
	if id == "" {
		return Report{}, ErrEmptyID
	}
	if len(buildings) == 0 {
		return Report{}, overlap.ErrNoBuildings
	}
	if err := cop.Validate(); err != nil {
		return Report{}, err
	}
	if err := validateBuildings(buildings); err != nil {
		return Report{}, err
	}

	n := len(buildings)
	heats := make([]overlap.Profile, n)
	cools := make([]overlap.Profile, n)
	besHeats := make([]overlap.Profile, n)
	besCools := make([]overlap.Profile, n)
	netHeats := make([]overlap.Profile, n)
	netCools := make([]overlap.Profile, n)
	reports := make([]BuildingReport, n)

	for i, b := range buildings {
		heats[i], cools[i] = b.Heat, b.Cool

		h, c, err := overlap.BESDemands(b.Heat, b.Cool, cop)
		if err != nil {
			return Report{}, fmt.Errorf("building %q: %w", b.Name, err)
		}
		besHeats[i], besCools[i] = h, c

		doc, err := besDOC(h, c)
		if err != nil {
			return Report{}, fmt.Errorf("building %q: %w", b.Name, err)
		}
		reports[i] = BuildingReport{Name: b.Name, BESDOC: doc}

		netHeats[i], netCools[i], err = overlap.NetDemands(h, c)
		if err != nil {
			return Report{}, fmt.Errorf("building %q: %w", b.Name, err)
		}
	}

	heat, err := overlap.Sum(heats...)
	if err != nil {
		return Report{}, fmt.Errorf("heating: %w", err)
	}
	cool, err := overlap.Sum(cools...)
	if err != nil {
		return Report{}, fmt.Errorf("cooling: %w", err)
	}

	rep := Report{
		DistrictID: id,
		Steps:      len(heat),
		Buildings:  reports,
		Heat:       heat,
		Cool:       cool,
	}
	if rep.DistrictDOC, err = overlap.DOC(heat, cool); err != nil {
		return Report{}, fmt.Errorf("district doc: %w", err)
	}
	if rep.DurationDOC, err = overlap.DurationDOC(heat, cool); err != nil {
		return Report{}, fmt.Errorf("duration doc: %w", err)
	}
	if rep.MeanBESDOC, err = overlap.MeanBESDOC(besHeats, besCools); err != nil {
		return Report{}, fmt.Errorf("mean bes doc: %w", err)
	}
	if rep.NetworkDOC, err = networkDOC(netHeats, netCools); err != nil {
		return Report{}, fmt.Errorf("network doc: %w", err)
	}
	if rep.Balanced, err = overlap.Balanced(heat, cool); err != nil {
		return Report{}, err
	}
	if rep.HeatCurve, err = overlap.NewDurationCurve(heat); err != nil {
		return Report{}, err
	}
	if rep.CoolCurve, err = overlap.NewDurationCurve(cool); err != nil {
		return Report{}, err
	}
	return rep, nil
}

// besDOC reports 0 for a building energy system without demand, so an idle
// building does not prevent the district from being evaluated.
func besDOC(heat, cool overlap.Profile) (float64, error) {
	return zeroWithoutDemand(overlap.DOC(heat, cool))
}

// networkDOC treats a network without any residual demand as having nothing
// left to balance.
func networkDOC(heats, cools []overlap.Profile) (float64, error) {
	return zeroWithoutDemand(overlap.NetworkDOC(heats, cools))
}

func zeroWithoutDemand(doc float64, err error) (float64, error) {
	if errors.Is(err, overlap.ErrNoDemand) {
		return 0, nil
	}
	return doc, err
}

func validateBuildings(buildings []Building) error {
	seen := make(map[string]struct{}, len(buildings))
	for _, b := range buildings {
		if b.Name == "" {
			return ErrUnnamedBuilding
		}
		if _, ok := seen[b.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateBuilding, b.Name)
		}
		seen[b.Name] = struct{}{}
	}
	return nil
}
