package vote

import "errors"

// Sentinel errors for vote parsing.
var (
	ErrUnknownVote = errors.New("unknown vote type")
)
