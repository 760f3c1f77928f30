package config

import "errors"

// Configuration errors, §7: fatal, the daemon refuses to start.
var (
	ErrMissingNodeID    = errors.New("NODE_ID is required")
	ErrInvalidNodeID    = errors.New("NODE_ID must not be 0")
	ErrUnknownKey       = errors.New("unknown configuration key")
	ErrInvalidSINRRange = errors.New("invalid SINR range")
	ErrInvalidThreshold = errors.New("invalid CREDIT_THRESHOLD")
)
