package overlap

import "errors"

var (
	ErrEmptyProfile   = errors.New("empty demand profile")
	ErrNegativeDemand = errors.New("negative demand value")
	ErrNotFinite      = errors.New("demand value is not finite")
	ErrLengthMismatch = errors.New("demand profiles differ in length")
	ErrNoDemand       = errors.New("heating and cooling demand are both zero")
	ErrNoBuildings    = errors.New("no buildings given")
	ErrInvalidCOP     = errors.New("heat pump COP must be >= 1 and chiller COP > 0")
)
