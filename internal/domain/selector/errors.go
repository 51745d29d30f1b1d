package selector

import "errors"

// Sentinel kinds for policy validation errors.
var (
	// ErrInvalidPolicy marks a policy rejected by validation; the stored
	// policy is left untouched.
	ErrInvalidPolicy = errors.New("invalid refresh rate policy")
)
