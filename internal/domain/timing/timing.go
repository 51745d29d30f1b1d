// Package timing defines display timings and the immutable catalog of
// timings the panel hardware supports.
package timing

import (
	"fmt"
	"math"
	"time"
)

// ConfigID identifies one hardware display config. IDs are assigned by the
// hardware layer at enumeration time and are opaque to this package.
type ConfigID int

// ConfigGroup identifies timings that are hardware-interchangeable (same
// resolution etc.). Automatic switching is restricted to timings in the same
// group unless the policy allows group switching.
type ConfigGroup int

// Timing is one hardware-supported refresh configuration. Values are
// immutable once built into a Catalog.
type Timing struct {
	ID          ConfigID
	VsyncPeriod int64 // nanoseconds, strictly positive
	Group       ConfigGroup
	Name        string // debugging only
	FPS         float64
}

// Same reports identity over (ID, VsyncPeriod, Group). Name and FPS do not
// participate: FPS is derived from the period and Name is a label.
func (t Timing) Same(o Timing) bool {
	return t.ID == o.ID && t.VsyncPeriod == o.VsyncPeriod && t.Group == o.Group
}

// InRange reports whether the timing's FPS lies in [min-ε, max+ε].
func (t Timing) InRange(minFPS, maxFPS float64) bool {
	return t.FPS >= minFPS-FPSEpsilon && t.FPS <= maxFPS+FPSEpsilon
}

func (t Timing) String() string {
	return fmt.Sprintf("%s (id=%d group=%d period=%s)",
		t.Name, t.ID, t.Group, time.Duration(t.VsyncPeriod))
}

// FPSEpsilon is the tolerance within which two FPS values are considered
// approximately equal.
const FPSEpsilon = 0.001

// PeriodToFPS converts a vsync period in nanoseconds to frames per second.
func PeriodToFPS(periodNs int64) float64 {
	return 1e9 / float64(periodNs)
}

// FPSToPeriod converts frames per second to a vsync period in nanoseconds,
// rounded to the nearest nanosecond.
func FPSToPeriod(fps float64) int64 {
	return int64(math.Round(1e9 / fps))
}

// Record is the construction input reported by the hardware collaborator for
// a single config.
type Record struct {
	ID          ConfigID
	Group       ConfigGroup
	VsyncPeriod int64
	Name        string // optional; synthesized from FPS when empty
}
