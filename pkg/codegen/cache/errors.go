package cache

import "errors"

var (
	// ErrInvalidPath is returned when a file path is empty
	ErrInvalidPath = errors.New("invalid file path")
)
