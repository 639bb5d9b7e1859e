package compiler

import (
	"context"
	"fmt"
	"time"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/linker"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/platinummonkey/modgen/pkg/codegen"
)

// Generator produces compiled bindings for a configuration
type Generator interface {
	Generate(ctx context.Context, cfg *Config) ([]codegen.GeneratedFile, error)
}

// DescriptorSet is the parsed form of every input file
type DescriptorSet struct {
	// Files are the inputs, in input order
	Files linker.Files
	// All is the transitive closure of Files, dependencies before dependents
	All []*descriptorpb.FileDescriptorProto
	// closure holds the descriptors All was built from, in the same order
	closure []protoreflect.FileDescriptor
}

// FileDescriptorSet returns the closure as a FileDescriptorSet message
func (d *DescriptorSet) FileDescriptorSet() *descriptorpb.FileDescriptorSet {
	return &descriptorpb.FileDescriptorSet{File: d.All}
}

// Closure returns every file reachable from the inputs, dependencies first
func (d *DescriptorSet) Closure() []protoreflect.FileDescriptor {
	return d.closure
}

// Types returns a registry of every message, enum and extension in the
// closure. Decoding the JSON form of the set needs it to resolve custom
// option keys such as "[yara.module_options]".
func (d *DescriptorSet) Types() (*protoregistry.Types, error) {
	types := new(protoregistry.Types)
	for _, fd := range d.closure {
		if err := registerTypes(types, fd.Messages(), fd.Enums(), fd.Extensions()); err != nil {
			return nil, fmt.Errorf("failed to register types of %s: %w", fd.Path(), err)
		}
	}
	return types, nil
}

func registerTypes(types *protoregistry.Types, msgs protoreflect.MessageDescriptors, enums protoreflect.EnumDescriptors, exts protoreflect.ExtensionDescriptors) error {
	for i := 0; i < enums.Len(); i++ {
		if err := types.RegisterEnum(dynamicpb.NewEnumType(enums.Get(i))); err != nil {
			return err
		}
	}
	for i := 0; i < exts.Len(); i++ {
		if err := types.RegisterExtension(dynamicpb.NewExtensionType(exts.Get(i))); err != nil {
			return err
		}
	}
	for i := 0; i < msgs.Len(); i++ {
		md := msgs.Get(i)
		if md.IsMapEntry() {
			continue
		}
		if err := types.RegisterMessage(dynamicpb.NewMessageType(md)); err != nil {
			return err
		}
		if err := registerTypes(types, md.Messages(), md.Enums(), md.Extensions()); err != nil {
			return err
		}
	}
	return nil
}

// Compiler drives the schema compiler for one configuration
type Compiler struct {
	cfg       *Config
	generator Generator
	log       *logrus.Logger
}

// Option configures a Compiler
type Option func(*Compiler)

// WithGenerator overrides the binding generator picked from cfg.Backend
func WithGenerator(g Generator) Option {
	return func(c *Compiler) {
		c.generator = g
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(c *Compiler) {
		c.log = log
	}
}

// New creates a Compiler. The docker backend has no built-in generator and
// must be supplied with WithGenerator.
func New(cfg *Config, opts ...Option) (*Compiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Compiler{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logrus.New()
	}

	if c.generator == nil {
		switch cfg.Backend {
		case BackendPure:
			c.generator = &PureGenerator{}
		case BackendProtoc:
			c.generator = &ProtocGenerator{Path: cfg.ProtocPath}
		default:
			return nil, fmt.Errorf("%w: %s requires an explicit generator", ErrUnknownBackend, cfg.Backend)
		}
	}

	return c, nil
}

// Config returns the shared configuration
func (c *Compiler) Config() *Config {
	return c.cfg
}

// Descriptors parses all inputs and returns their descriptors
func (c *Compiler) Descriptors(ctx context.Context) (*DescriptorSet, error) {
	start := time.Now()
	set, err := Parse(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"files":    len(set.Files),
		"closure":  len(set.All),
		"duration": time.Since(start),
	}).Debug("Parsed schema descriptors")
	return set, nil
}

// Bindings generates compiled bindings and writes them to the output directory
func (c *Compiler) Bindings(ctx context.Context) ([]codegen.GeneratedFile, error) {
	start := time.Now()
	files, err := c.generator.Generate(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	if err := codegen.WriteFiles(c.cfg.OutDir, files); err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"backend":  c.cfg.Backend,
		"files":    len(files),
		"out_dir":  c.cfg.OutDir,
		"duration": time.Since(start),
	}).Debug("Generated schema bindings")
	return files, nil
}

// Parse compiles the configured inputs with protocompile
func Parse(ctx context.Context, cfg *Config) (*DescriptorSet, error) {
	if len(cfg.Inputs) == 0 {
		return nil, ErrNoInputs
	}

	comp := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			ImportPaths: cfg.IncludePaths,
		}),
		SourceInfoMode: protocompile.SourceInfoStandard,
	}

	files, err := comp.Compile(ctx, cfg.Inputs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompilationFailed, err)
	}

	closure := closureOf(files)
	all := make([]*descriptorpb.FileDescriptorProto, len(closure))
	for i, fd := range closure {
		all[i] = protodesc.ToFileDescriptorProto(fd)
	}

	return &DescriptorSet{
		Files:   files,
		All:     all,
		closure: closure,
	}, nil
}

// closureOf orders files and their imports so that every file appears after
// all of its dependencies
func closureOf(files linker.Files) []protoreflect.FileDescriptor {
	var out []protoreflect.FileDescriptor
	seen := make(map[string]bool)

	var visit func(fd protoreflect.FileDescriptor)
	visit = func(fd protoreflect.FileDescriptor) {
		if fd == nil || fd.IsPlaceholder() || seen[fd.Path()] {
			return
		}
		seen[fd.Path()] = true
		imports := fd.Imports()
		for i := 0; i < imports.Len(); i++ {
			visit(imports.Get(i).FileDescriptor)
		}
		out = append(out, fd)
	}

	for _, f := range files {
		visit(f)
	}
	return out
}
