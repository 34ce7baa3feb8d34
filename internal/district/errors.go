package district

import "errors"

var (
	ErrDuplicateBuilding = errors.New("duplicate building name")
	ErrUnnamedBuilding   = errors.New("building name is required")
	ErrEmptyID           = errors.New("district id is required")
)
