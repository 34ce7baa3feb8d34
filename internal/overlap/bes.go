package overlap

import (
	"fmt"
	"math"
)

// COP holds the coefficients of performance of a building energy system.
type COP struct {
	HeatPump float64
	Chiller  float64
}

func (c COP) Validate() error {
	if math.IsNaN(c.HeatPump) || math.IsNaN(c.Chiller) || c.HeatPump < 1 || c.Chiller <= 0 {
		return fmt.Errorf("%w (heat pump %g, chiller %g)", ErrInvalidCOP, c.HeatPump, c.Chiller)
	}
	return nil
}

// BESDemands converts building demands into the demands a building energy
// system places on the network. The heat pump draws (1 - 1/COP) of the
// heating demand from the network, the chiller rejects (1 + 1/COP) of the
// cooling demand into it.
func BESDemands(heat, cool Profile, cop COP) (Profile, Profile, error) {
	if err := cop.Validate(); err != nil {
		return nil, nil, err
	}
	if err := validatePair(heat, cool); err != nil {
		return nil, nil, err
	}
	h := make(Profile, len(heat))
	c := make(Profile, len(cool))
	for t := range heat {
		h[t] = heat[t] * (1 - 1/cop.HeatPump)
		c[t] = cool[t] * (1 + 1/cop.Chiller)
	}
	return h, c, nil
}

// NetDemands removes the part of heating and cooling that is balanced
// inside the building, leaving what has to be exchanged over the network.
func NetDemands(heat, cool Profile) (Profile, Profile, error) {
	if err := validatePair(heat, cool); err != nil {
		return nil, nil, err
	}
	h := make(Profile, len(heat))
	c := make(Profile, len(cool))
	for t := range heat {
		b := math.Min(heat[t], cool[t])
		h[t] = heat[t] - b
		c[t] = cool[t] - b
	}
	return h, c, nil
}
