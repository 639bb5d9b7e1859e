package orchestrator

import (
	"fmt"
	"time"

	"github.com/platinummonkey/modgen/pkg/codegen"
	"github.com/platinummonkey/modgen/pkg/codegen/compiler"
	"github.com/platinummonkey/modgen/pkg/codegen/modules"
	"github.com/platinummonkey/modgen/pkg/codegen/protopath"
	"github.com/platinummonkey/modgen/pkg/codegen/registry"
	appconfig "github.com/platinummonkey/modgen/pkg/config"
)

// Pipeline stage names, used for spans, metrics and log fields
const (
	StageResolve  = "resolve"
	StageParse    = "parse"
	StageExtract  = "extract"
	StageBindings = "bindings"
	StageEmit     = "emit"
)

// Config holds everything one generation run needs
type Config struct {
	Layout protopath.Layout
	Extra  protopath.ExtraSpec

	// Extension is the fully-qualified module options extension name
	Extension string

	// BindingsDir receives the compiled bindings
	BindingsDir    string
	Backend        compiler.Backend
	GoImportPrefix string
	ProtocPath     string
	DockerImage    string

	Emitter registry.Emitter
	Outputs registry.Outputs

	// MetricsFile, when set, receives the Prometheus textfile after each run
	MetricsFile string
}

// NewConfig derives the run configuration from the application config
func NewConfig(c *appconfig.Config) (*Config, error) {
	layout, err := c.Layout()
	if err != nil {
		return nil, err
	}
	inclusion, err := c.InclusionPath()
	if err != nil {
		return nil, err
	}
	backend, err := compiler.ParseBackend(c.Generator.Backend)
	if err != nil {
		return nil, err
	}
	dialect, err := registry.ParseDialect(c.Generator.Dialect)
	if err != nil {
		return nil, err
	}

	return &Config{
		Layout:         layout,
		Extra:          c.Extra,
		Extension:      c.Generator.Extension,
		BindingsDir:    c.BindingsPath(),
		Backend:        backend,
		GoImportPrefix: c.Generator.GoImportPrefix,
		ProtocPath:     c.Generator.ProtocPath,
		DockerImage:    c.Generator.DockerImage,
		Emitter: registry.Emitter{
			Dialect:      dialect,
			Package:      c.Generator.GoPackage,
			ImportPrefix: c.Generator.GoModulePrefix,
		},
		Outputs: registry.Outputs{
			InclusionPath: inclusion,
			TablePath:     c.TablePath(),
		},
		MetricsFile: c.Observability.MetricsFile,
	}, nil
}

// Validate checks the configuration is complete
func (c *Config) Validate() error {
	if c.Layout.SchemaDir == "" {
		return fmt.Errorf("%w: schema directory is required", ErrInvalidConfig)
	}
	if c.Extension == "" {
		return fmt.Errorf("%w: module options extension is required", ErrInvalidConfig)
	}
	if c.BindingsDir == "" {
		return fmt.Errorf("%w: bindings directory is required", ErrInvalidConfig)
	}
	if c.Outputs.InclusionPath == "" || c.Outputs.TablePath == "" {
		return fmt.Errorf("%w: inclusion and table paths are required", ErrInvalidConfig)
	}
	return nil
}

// Result describes a completed run
type Result struct {
	RunID        string
	Files        *protopath.FileSet
	Bindings     []codegen.GeneratedFile
	Declarations []modules.Declaration
	Outputs      registry.Outputs
	Duration     time.Duration
}

// Inspection is the descriptor side of a run, without bindings or output files
type Inspection struct {
	Files        *protopath.FileSet
	Descriptors  *compiler.DescriptorSet
	Declarations []modules.Declaration
}
