package model

import (
	"errors"
)

var (
	// ErrToolUnavailable is returned when an external binary can't be
	// located on $PATH. Callers treat it as a stage with zero results.
	ErrToolUnavailable = errors.New("tool unavailable")
	ErrNotFound        = errors.New("not found")
	ErrInvalidDomain   = errors.New("invalid domain name")
)
