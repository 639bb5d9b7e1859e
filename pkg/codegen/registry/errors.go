package registry

import "errors"

var (
	// ErrUnknownDialect is returned when a registry dialect is not supported
	ErrUnknownDialect = errors.New("unknown registry dialect")

	// ErrRenderFailed is returned when a registry file cannot be rendered
	ErrRenderFailed = errors.New("failed to render registry")

	// ErrWriteFailed is returned when a registry file cannot be written
	ErrWriteFailed = errors.New("failed to write registry file")
)
