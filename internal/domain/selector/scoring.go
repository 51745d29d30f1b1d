package selector

import "time"

// Scoring constants.
const (
	// defaultFrameMargin is the nanosecond tolerance used when matching a
	// layer's desired period against a candidate vsync period.
	defaultFrameMargin = 800 * time.Microsecond

	// maxFramesToFit caps the penalty applied when a layer wants to render
	// faster than a candidate can refresh.
	maxFramesToFit = 10
)

// displayFrames divides the layer's render period by the display's vsync
// period. It returns how many display frames fit in one layer frame and the
// leftover nanoseconds, snapping remainders within margin of a frame
// boundary to zero (and counting the extra frame when snapping up).
func displayFrames(layerPeriod, displayPeriod, margin int64) (frames, rem int64) {
	frames = layerPeriod / displayPeriod
	rem = layerPeriod % displayPeriod
	if rem <= margin {
		rem = 0
	} else if displayPeriod-rem <= margin {
		frames++
		rem = 0
	}
	return frames, rem
}

// alignmentScore rates how well a candidate vsync period serves a layer
// rendering every layerPeriod nanoseconds. The score is 1.0 for an exact
// divisor or multiple and decreases monotonically as the remainder grows
// relative to the display period:
//
//	rem == 0             -> 1.0
//	frames == 0          -> (layerPeriod/displayPeriod) / (maxFramesToFit+1)
//	otherwise            -> 1 - min(rem, displayPeriod-rem)/displayPeriod
//
// The frames == 0 branch covers layers that want to render faster than the
// candidate refreshes; the small score still grows with the candidate rate
// so the fastest candidate is preferred among such misfits.
func alignmentScore(layerPeriod, displayPeriod, frames, rem int64) float64 {
	if frames == 0 {
		return float64(layerPeriod) / float64(displayPeriod) / (maxFramesToFit + 1)
	}
	if rem == 0 {
		return 1
	}
	d := rem
	if displayPeriod-rem < d {
		d = displayPeriod - rem
	}
	return 1 - float64(d)/float64(displayPeriod)
}
