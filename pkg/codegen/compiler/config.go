package compiler

import (
	"fmt"

	"github.com/platinummonkey/modgen/pkg/codegen/protopath"
)

// Backend selects how compiled bindings are produced
type Backend string

const (
	// BackendPure compiles in process, with no native toolchain
	BackendPure Backend = "pure"
	// BackendProtoc shells out to a local protoc
	BackendProtoc Backend = "protoc"
	// BackendDocker runs protoc inside a container
	BackendDocker Backend = "docker"
)

// ParseBackend validates a backend name
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(name); b {
	case BackendPure, BackendProtoc, BackendDocker:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Config is shared by binding generation and descriptor parsing. Both are
// derived from the same include paths and inputs so they always agree on
// which files exist.
type Config struct {
	// IncludePaths are the import roots, in lookup order
	IncludePaths []string
	// Inputs are file names relative to one of IncludePaths
	Inputs []string
	// OutDir receives compiled bindings
	OutDir string
	// Backend selects the binding generator
	Backend Backend
	// GoImportPrefix is used for files that do not declare go_package
	GoImportPrefix string
	// ProtocPath is the protoc executable for the protoc backend
	ProtocPath string
}

// NewConfig derives a compiler configuration from a resolved file set
func NewConfig(set *protopath.FileSet, outDir string) *Config {
	includes := make([]string, len(set.IncludePaths))
	copy(includes, set.IncludePaths)

	return &Config{
		IncludePaths: includes,
		Inputs:       set.Names(),
		OutDir:       outDir,
		Backend:      BackendPure,
	}
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInputs
	}
	if c.OutDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	return nil
}
