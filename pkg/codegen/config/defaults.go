// Package config provides default configuration values for the codegen system
//
// CENTRALIZED DEFAULTS: All magic constants should be defined here
//
// Paths are relative to the tool's root directory unless stated otherwise.
// The defaults mirror the layout of a host crate whose build step invokes
// modgen: schemas under src/modules/protos, shared definitions in sibling
// crates, generated output in the build's OUT_DIR.
package config

import (
	"time"
)

// Schema discovery defaults
const (
	// DefaultSchemaDir is the primary schema directory, scanned non-recursively
	DefaultSchemaDir = "src/modules/protos"

	// DefaultSchemaSuffix selects schema files inside DefaultSchemaDir
	DefaultSchemaSuffix = ".proto"

	// DefaultModuleExtension is the fully-qualified name of the file option
	// extension that marks a schema as a module declaration
	DefaultModuleExtension = "yara.module_options"
)

// DefaultSharedIncludes are include roots with shared definitions. They are
// always registered, whether or not extra files are configured.
var DefaultSharedIncludes = []string{"../proto/src", "../proto-yaml/src"}

// DefaultSharedInputs are compiled on every run, ahead of the primary schemas.
// They define the module options extension and the shared field options.
var DefaultSharedInputs = []string{"../proto/src/yara.proto", "../proto-yaml/src/yaml.proto"}

// Generated output defaults
const (
	// DefaultInclusionFile is the module-inclusion file, relative to the root
	DefaultInclusionFile = "src/modules/modules.rs"

	// DefaultTableFile is the registration-table file, relative to OUT_DIR
	DefaultTableFile = "add_modules.rs"

	// DefaultBindingsDir is where compiled bindings go, relative to OUT_DIR
	DefaultBindingsDir = "protos"

	// DefaultDialect is the language the registry files are emitted in
	DefaultDialect = "rust"

	// DefaultBackend compiles bindings in process, without a native toolchain
	DefaultBackend = "pure"

	// DefaultGoImportPrefix is used for schemas that do not declare go_package
	DefaultGoImportPrefix = "modgen.local/protos"

	// DefaultGoPackage is the package clause of go dialect registry files
	DefaultGoPackage = "modules"

	// DefaultGoModuleImportPrefix is the import path prefix of host modules
	// referenced by go dialect registry files
	DefaultGoModuleImportPrefix = "modgen.local/modules"
)

// Backend defaults
const (
	// DefaultProtocPath is the protoc executable used by the protoc backend
	DefaultProtocPath = "protoc"

	// DefaultDockerImage runs protoc with protoc-gen-go installed
	DefaultDockerImage = "modgen/protoc-gen-go:1.36.11"

	// DefaultDockerMemoryLimit is the memory limit for the docker backend
	// Default: 512MB
	DefaultDockerMemoryLimit = 512 * 1024 * 1024

	// DefaultDockerCPULimit is the CPU limit for the docker backend
	DefaultDockerCPULimit = 1.0

	// DefaultDockerTimeout bounds a single containerised protoc run
	DefaultDockerTimeout = 5 * time.Minute
)

// Watch defaults
const (
	// DefaultWatchDebounce coalesces bursts of file events into one run
	DefaultWatchDebounce = 500 * time.Millisecond

	// DefaultFingerprintCacheSize bounds the content hashes kept by watch
	DefaultFingerprintCacheSize = 1024
)
