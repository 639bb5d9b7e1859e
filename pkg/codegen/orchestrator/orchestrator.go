package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/platinummonkey/modgen/pkg/buildsignal"
	"github.com/platinummonkey/modgen/pkg/codegen/compiler"
	"github.com/platinummonkey/modgen/pkg/codegen/docker"
	"github.com/platinummonkey/modgen/pkg/codegen/modules"
	"github.com/platinummonkey/modgen/pkg/codegen/protopath"
	appconfig "github.com/platinummonkey/modgen/pkg/config"
	"github.com/platinummonkey/modgen/pkg/observability"
)

// Orchestrator runs the generation pipeline: resolve the schema files,
// extract module declarations, compile bindings and emit the registry files.
// A schema or declaration error stops the run before any file is written.
type Orchestrator struct {
	config    *Config
	log       *logrus.Logger
	signals   *buildsignal.Signaler
	recorder  *observability.Recorder
	generator compiler.Generator
	// docker is the generator this orchestrator created and must close
	docker *docker.Generator
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithSignaler sets where build system directives go
func WithSignaler(s *buildsignal.Signaler) Option {
	return func(o *Orchestrator) {
		o.signals = s
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r *observability.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithGenerator overrides the binding generator picked from the backend
func WithGenerator(g compiler.Generator) Option {
	return func(o *Orchestrator) {
		o.generator = g
	}
}

// NewOrchestrator creates a new generation orchestrator
func NewOrchestrator(config *Config, opts ...Option) (*Orchestrator, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is required", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{config: config}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logrus.New()
	}
	if o.signals == nil {
		o.signals = buildsignal.New(nil)
	}

	if o.generator == nil && config.Backend == compiler.BackendDocker {
		gen, err := docker.NewGenerator(config.DockerImage, o.log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize docker backend: %w", err)
		}
		o.generator = gen
		o.docker = gen
	}

	return o, nil
}

// Config returns the run configuration
func (o *Orchestrator) Config() *Config {
	return o.config
}

// Run executes one full generation run
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	runID := observability.NewRunID()
	ctx = observability.WithRunID(ctx, runID)
	ctx, span := observability.Tracer().Start(ctx, "modgen.generate")
	defer span.End()

	start := time.Now()
	result := &Result{RunID: runID, Outputs: o.config.Outputs}
	log := observability.FromContext(ctx, o.log)

	err := o.run(ctx, result)
	result.Duration = time.Since(start)

	counts := observability.RunCounts{
		Modules:      len(result.Declarations),
		BindingFiles: len(result.Bindings),
	}
	if result.Files != nil {
		counts.SchemaFiles = len(result.Files.Files)
	}

	status := observability.StatusSuccess
	if err != nil {
		status = observability.StatusFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.recorder.RecordRun(ctx, status, counts)
	o.writeMetrics(log)

	if err != nil {
		log.WithError(err).WithField("duration", result.Duration).Error("Generation failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"schema_files": counts.SchemaFiles,
		"modules":      counts.Modules,
		"bindings":     counts.BindingFiles,
		"duration":     result.Duration,
	}).Info("Generation completed")
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, result *Result) error {
	files, err := o.resolve(ctx)
	if err != nil {
		return err
	}
	result.Files = files

	comp, err := o.newCompiler(files)
	if err != nil {
		return err
	}

	// declarations are checked before anything lands on disk
	inspection, err := o.inspect(ctx, files, comp)
	if err != nil {
		return err
	}
	result.Declarations = inspection.Declarations

	err = o.stage(ctx, StageBindings, func(ctx context.Context) error {
		bindings, err := comp.Bindings(ctx)
		result.Bindings = bindings
		return err
	})
	if err != nil {
		return err
	}

	return o.stage(ctx, StageEmit, func(ctx context.Context) error {
		return o.config.Emitter.Write(result.Declarations, o.config.Outputs)
	})
}

// Inspect resolves and parses the schemas and extracts their declarations,
// without generating bindings or writing any file
func (o *Orchestrator) Inspect(ctx context.Context) (*Inspection, error) {
	files, err := o.resolve(ctx)
	if err != nil {
		return nil, err
	}
	comp, err := o.newCompiler(files)
	if err != nil {
		return nil, err
	}
	return o.inspect(ctx, files, comp)
}

func (o *Orchestrator) inspect(ctx context.Context, files *protopath.FileSet, comp *compiler.Compiler) (*Inspection, error) {
	inspection := &Inspection{Files: files}

	err := o.stage(ctx, StageParse, func(ctx context.Context) error {
		var err error
		inspection.Descriptors, err = comp.Descriptors(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = o.stage(ctx, StageExtract, func(ctx context.Context) error {
		var err error
		inspection.Declarations, err = o.extract(ctx, inspection.Descriptors)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inspection, nil
}

// resolve computes the file set and reports the extra files configuration
// to the build system
func (o *Orchestrator) resolve(ctx context.Context) (*protopath.FileSet, error) {
	var files *protopath.FileSet
	err := o.stage(ctx, StageResolve, func(ctx context.Context) error {
		layout := o.config.Layout
		extra := o.config.Extra

		schemaDir := layout.SchemaDir
		if !filepath.IsAbs(schemaDir) {
			schemaDir = filepath.Join(layout.Root, schemaDir)
		}
		o.signals.RerunIfChanged(schemaDir)
		o.signals.RerunIfEnvChanged(appconfig.EnvExtraProtos)
		o.signals.RerunIfEnvChanged(appconfig.EnvExtraProtosBasePath)

		if extra.Raw != "" {
			o.signals.Warningf("%s=%q", appconfig.EnvExtraProtos, protopath.ParseExtra(extra.Raw))
			if extra.HasBasePath {
				o.signals.Warningf("%s=%q", appconfig.EnvExtraProtosBasePath, extra.BasePath)
			}
		}

		var err error
		files, err = protopath.Resolve(layout, extra)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrResolveFailed, err)
		}

		for _, token := range protopath.ParseExtra(extra.Raw) {
			path, err := protopath.ResolveExtra(layout.Root, token, extra)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrResolveFailed, err)
			}
			o.signals.Warningf("adding %q", path)
		}
		return nil
	})
	return files, err
}

func (o *Orchestrator) newCompiler(files *protopath.FileSet) (*compiler.Compiler, error) {
	cfg := compiler.NewConfig(files, o.config.BindingsDir)
	cfg.Backend = o.config.Backend
	cfg.GoImportPrefix = o.config.GoImportPrefix
	cfg.ProtocPath = o.config.ProtocPath

	opts := []compiler.Option{compiler.WithLogger(o.log)}
	if o.generator != nil {
		opts = append(opts, compiler.WithGenerator(o.generator))
	}
	return compiler.New(cfg, opts...)
}

// extract collects the module declarations. A closure without the module
// options extension declares no modules.
func (o *Orchestrator) extract(ctx context.Context, set *compiler.DescriptorSet) ([]modules.Declaration, error) {
	xt, err := modules.LookupExtension(set, o.config.Extension)
	if errors.Is(err, modules.ErrExtensionNotFound) {
		observability.FromContext(ctx, o.log).WithField("extension", o.config.Extension).
			Warn("Module options extension is not defined, no modules declared")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return modules.Collect(modules.Extract(set, xt, o.config.Layout.Suffix))
}

// stage runs fn inside a span and records its duration
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := observability.Tracer().Start(ctx, "modgen."+name)
	span.SetAttributes(attribute.String("modgen.stage", name))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	o.recorder.ObserveStage(ctx, name, elapsed)

	entry := observability.FromContext(ctx, o.log).WithFields(logrus.Fields{
		"stage":    name,
		"duration": elapsed,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		entry.WithError(err).Debug("Stage failed")
		return err
	}
	entry.Debug("Stage completed")
	return nil
}

func (o *Orchestrator) writeMetrics(log *logrus.Entry) {
	if o.config.MetricsFile == "" || o.recorder == nil || o.recorder.Prom == nil {
		return
	}
	if err := o.recorder.Prom.WriteTextfile(o.config.MetricsFile); err != nil {
		log.WithError(err).WithField("path", o.config.MetricsFile).Warn("Failed to write metrics textfile")
	}
}

// Close releases the docker backend when this orchestrator created it
func (o *Orchestrator) Close() error {
	if o.docker != nil {
		return o.docker.Close()
	}
	return nil
}
