package compiler

import "errors"

var (
	// ErrCompilationFailed is returned when the schema compiler reports an error
	ErrCompilationFailed = errors.New("compilation failed")

	// ErrNoInputs is returned when there are no schema files to compile
	ErrNoInputs = errors.New("no schema files to compile")

	// ErrUnknownBackend is returned when a binding backend is not supported
	ErrUnknownBackend = errors.New("unknown binding backend")
)
