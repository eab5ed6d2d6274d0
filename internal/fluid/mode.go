package fluid

import (
	"fmt"
	"strings"
)

// Mode selects the solver strategy.
type Mode int

const (
	// SPH integrates pressure and viscosity forces directly.
	SPH Mode = iota
	// PBF iteratively projects predicted positions onto a density constraint.
	PBF
)

func (m Mode) String() string {
	switch m {
	case SPH:
		return "sph"
	case PBF:
		return "pbf"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "sph" or "pbf" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sph":
		return SPH, nil
	case "pbf":
		return PBF, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
