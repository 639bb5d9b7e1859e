package docker

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/modgen/pkg/codegen"
	"github.com/platinummonkey/modgen/pkg/codegen/compiler"
	"github.com/platinummonkey/modgen/pkg/codegen/config"
)

// Generator produces Go bindings with a containerised protoc. It implements
// compiler.Generator for the docker backend.
type Generator struct {
	Runner Runner
	// Image is the compiler image reference, including its tag
	Image       string
	MemoryLimit int64
	CPULimit    float64
	Log         *logrus.Logger
}

// NewGenerator creates a Generator backed by the local Docker daemon
func NewGenerator(image string, log *logrus.Logger) (*Generator, error) {
	runner, err := NewDockerRunner()
	if err != nil {
		return nil, err
	}
	if image == "" {
		image = config.DefaultDockerImage
	}
	return &Generator{Runner: runner, Image: image, Log: log}, nil
}

// Generate implements compiler.Generator
func (g *Generator) Generate(ctx context.Context, cfg *compiler.Config) ([]codegen.GeneratedFile, error) {
	set, err := compiler.Parse(ctx, cfg)
	if err != nil {
		return nil, err
	}

	result, err := g.Runner.Execute(ctx, &ExecutionRequest{
		Image:        g.Image,
		IncludePaths: cfg.IncludePaths,
		Inputs:       cfg.Inputs,
		GoParameters: compiler.GoParameters(set.All, cfg.GoImportPrefix),
		MemoryLimit:  g.MemoryLimit,
		CPULimit:     g.CPULimit,
	})
	if g.Log != nil && result != nil {
		g.Log.WithFields(logrus.Fields{
			"image":     g.Image,
			"exit_code": result.ExitCode,
			"duration":  result.Duration,
		}).Debug("Docker protoc run finished")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", compiler.ErrCompilationFailed, err)
	}
	return result.GeneratedFiles, nil
}

// Close releases the runner
func (g *Generator) Close() error {
	return g.Runner.Close()
}
