package timing

import (
	"fmt"
	"sort"
)

// Catalog is the build-once table of all timings the display supports. It is
// never mutated after construction, so reads need no synchronization.
type Catalog struct {
	byID   map[ConfigID]Timing
	sorted []Timing // lowest refresh rate first (longest vsync period first)

	minSupported Timing // lowest FPS, independent of policy
	maxSupported Timing // highest FPS, independent of policy
}

// NewCatalog builds a catalog from hardware-reported records. It rejects an
// empty input and duplicate config IDs; a display with no usable timing
// cannot be scheduled at all.
func NewCatalog(records []Record) (*Catalog, error) {
	if len(records) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{byID: make(map[ConfigID]Timing, len(records))}
	for _, r := range records {
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: config id %d", ErrDuplicateConfig, r.ID)
		}
		if r.VsyncPeriod <= 0 {
			return nil, fmt.Errorf("%w: config id %d has period %d", ErrInvalidPeriod, r.ID, r.VsyncPeriod)
		}
		fps := PeriodToFPS(r.VsyncPeriod)
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("%.2fHz", fps)
		}
		t := Timing{
			ID:          r.ID,
			VsyncPeriod: r.VsyncPeriod,
			Group:       r.Group,
			Name:        name,
			FPS:         fps,
		}
		c.byID[t.ID] = t
		c.sorted = append(c.sorted, t)
	}

	// Longest period first, so index 0 is the lowest refresh rate. Selection
	// tie-breaking relies on this order.
	sort.Slice(c.sorted, func(i, j int) bool {
		return c.sorted[i].VsyncPeriod > c.sorted[j].VsyncPeriod
	})
	c.minSupported = c.sorted[0]
	c.maxSupported = c.sorted[len(c.sorted)-1]
	return c, nil
}

// ByID looks up a timing by config ID.
func (c *Catalog) ByID(id ConfigID) (Timing, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// MustByID returns the timing for id and panics when the ID is unknown.
// An unknown ID means the caller and the hardware layer have desynchronized;
// continuing with a wrong timing risks visible display corruption, so this
// is a contract violation rather than a recoverable error.
func (c *Catalog) MustByID(id ConfigID) Timing {
	t, ok := c.byID[id]
	if !ok {
		panic(fmt.Sprintf("timing: unknown config id %d", id))
	}
	return t
}

// All returns every supported timing ordered from the lowest refresh rate to
// the highest. The returned slice is a copy.
func (c *Catalog) All() []Timing {
	out := make([]Timing, len(c.sorted))
	copy(out, c.sorted)
	return out
}

// Len returns the number of supported timings.
func (c *Catalog) Len() int { return len(c.sorted) }

// MinSupported returns the lowest-FPS timing on the device. Policy never
// affects it.
func (c *Catalog) MinSupported() Timing { return c.minSupported }

// MaxSupported returns the highest-FPS timing on the device. Policy never
// affects it.
func (c *Catalog) MaxSupported() Timing { return c.maxSupported }
