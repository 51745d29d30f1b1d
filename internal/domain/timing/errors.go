package timing

import "errors"

// Sentinel kinds for catalog construction errors.
var (
	ErrEmptyCatalog    = errors.New("no display timings reported")
	ErrDuplicateConfig = errors.New("duplicate config id")
	ErrInvalidPeriod   = errors.New("non-positive vsync period")
)
