package protopath

import "errors"

var (
	// ErrUnresolvablePath is returned when an extra schema path cannot be canonicalized
	ErrUnresolvablePath = errors.New("cannot resolve schema path")

	// ErrSchemaDirNotFound is returned when the primary schema directory cannot be read
	ErrSchemaDirNotFound = errors.New("schema directory not found")

	// ErrShadowedName is returned when two different files resolve to the same
	// compiler-facing name and one would silently shadow the other
	ErrShadowedName = errors.New("schema file name is shadowed")
)
