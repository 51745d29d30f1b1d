package selector

import (
	"fmt"

	"github.com/nkast/ratekeeper/internal/domain/timing"
)

// Policy constrains which timings are selectable. Two policies coexist: the
// administrator policy (always present) and an optional override policy set
// by privileged callers such as test harnesses. While the override is set it
// takes precedence; clearing it reverts to the administrator policy.
type Policy struct {
	// DefaultConfig anchors automatic switching: unless AllowGroupSwitching
	// is set, only timings in DefaultConfig's group are selectable, and it is
	// the fallback whenever no available timing fits.
	DefaultConfig timing.ConfigID
	// MinFPS and MaxFPS bound the allowed refresh rate range.
	MinFPS float64
	MaxFPS float64
	// AllowGroupSwitching permits switching across config groups to reach a
	// better frame rate.
	AllowGroupSwitching bool
}

// validate checks the policy against the catalog. MinFPS must not exceed
// MaxFPS and DefaultConfig must reference a known timing.
func (p Policy) validate(cat *timing.Catalog) error {
	if p.MinFPS > p.MaxFPS {
		return fmt.Errorf("%w: min fps %.3f > max fps %.3f", ErrInvalidPolicy, p.MinFPS, p.MaxFPS)
	}
	if _, ok := cat.ByID(p.DefaultConfig); !ok {
		return fmt.Errorf("%w: default config %d not in catalog", ErrInvalidPolicy, p.DefaultConfig)
	}
	return nil
}

// SetResult reports the outcome of a successful policy update.
type SetResult int

const (
	// PolicyUpdated means validation passed and the effective policy changed;
	// the available timings were recomputed.
	PolicyUpdated SetResult = iota
	// PolicyUnchanged means validation passed but the effective policy is
	// identical to what it was, so no recomputation occurred. Callers use
	// this to skip redundant downstream work.
	PolicyUnchanged
)

func (r SetResult) String() string {
	if r == PolicyUnchanged {
		return "unchanged"
	}
	return "updated"
}
