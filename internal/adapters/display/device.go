// Package display adapts hardware-reported display configs to the timing
// catalog's construction input.
package display

import (
	"github.com/nkast/ratekeeper/internal/config"
	"github.com/nkast/ratekeeper/internal/domain/timing"
)

// DeviceConfig is the native config-description object of the older hardware
// abstraction revision. Only the timing-relevant fields matter here; the
// rest describe the mode for other consumers.
type DeviceConfig struct {
	ConfigID         int
	ConfigGroup      int
	VsyncPeriodNanos int64
	Width            int
	Height           int
	Name             string
}

// FromDeviceConfigs adapts legacy device configs into catalog records. It is
// functionally equivalent to building records by hand and exists for
// interoperability with the older hardware abstraction revision.
func FromDeviceConfigs(configs []*DeviceConfig) []timing.Record {
	records := make([]timing.Record, 0, len(configs))
	for _, c := range configs {
		if c == nil {
			continue
		}
		records = append(records, timing.Record{
			ID:          timing.ConfigID(c.ConfigID),
			Group:       timing.ConfigGroup(c.ConfigGroup),
			VsyncPeriod: c.VsyncPeriodNanos,
			Name:        c.Name,
		})
	}
	return records
}

// FromEntries converts configuration-file timing entries into catalog
// records. An entry that carries only an FPS gets its period derived from
// it; when both are present the period wins.
func FromEntries(entries []config.TimingEntry) []timing.Record {
	records := make([]timing.Record, 0, len(entries))
	for _, e := range entries {
		period := e.VsyncPeriodNS
		if period <= 0 && e.FPS > 0 {
			period = timing.FPSToPeriod(e.FPS)
		}
		records = append(records, timing.Record{
			ID:          timing.ConfigID(e.ID),
			Group:       timing.ConfigGroup(e.Group),
			VsyncPeriod: period,
			Name:        e.Name,
		})
	}
	return records
}
