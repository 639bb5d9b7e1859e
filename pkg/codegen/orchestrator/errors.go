package orchestrator

import "errors"

var (
	// ErrInvalidConfig is returned when the orchestrator configuration is incomplete
	ErrInvalidConfig = errors.New("invalid orchestrator configuration")

	// ErrResolveFailed is returned when the schema file set cannot be resolved
	ErrResolveFailed = errors.New("schema resolution failed")
)
