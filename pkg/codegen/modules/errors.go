package modules

import "errors"

var (
	// ErrExtensionNotFound is returned when no file in the closure defines the
	// module options extension
	ErrExtensionNotFound = errors.New("module options extension not found")

	// ErrNotFileOption is returned when the extension does not extend
	// google.protobuf.FileOptions
	ErrNotFileOption = errors.New("extension does not extend file options")

	// ErrMissingName is returned when a module declaration has no name
	ErrMissingName = errors.New("module declaration is missing name")

	// ErrMissingRootMessage is returned when a module declaration has no root message
	ErrMissingRootMessage = errors.New("module declaration is missing root_message")

	// ErrSuffixMismatch is returned when a declaring file does not carry the schema suffix
	ErrSuffixMismatch = errors.New("schema file name does not end in the schema suffix")

	// ErrDuplicateModule is returned when two files declare the same module name
	ErrDuplicateModule = errors.New("duplicate module name")

	// ErrInvalidIdentifier is returned when a host module or feature name
	// cannot be written into generated code
	ErrInvalidIdentifier = errors.New("invalid identifier")
)
