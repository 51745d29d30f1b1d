package service

import "errors"

// Sentinel errors for the service layer.
var (
	ErrUnknownConfig = errors.New("unknown config id")
)
