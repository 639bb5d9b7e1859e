package docker

import (
	"context"
	"time"

	"github.com/platinummonkey/modgen/pkg/codegen"
	"github.com/platinummonkey/modgen/pkg/codegen/config"
)

// Runner executes protoc in Docker containers
type Runner interface {
	// Execute runs protoc in a Docker container
	Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error)

	// PullImage ensures the Docker image is available locally
	PullImage(ctx context.Context, image string) error

	// Cleanup removes containers created by Execute
	Cleanup(ctx context.Context) error

	// Close releases resources
	Close() error
}

// ExecutionRequest represents a Docker execution request
type ExecutionRequest struct {
	// Docker configuration
	Image string
	Tag   string

	// IncludePaths are host directories, each mounted read-only in the
	// container in the same order
	IncludePaths []string
	// Inputs are file names relative to one of IncludePaths
	Inputs []string

	// GoParameters are passed to protoc-gen-go
	GoParameters []string

	// Resource limits
	MemoryLimit int64         // Memory limit in bytes (see config.DefaultDockerMemoryLimit)
	CPULimit    float64       // CPU limit (see config.DefaultDockerCPULimit)
	Timeout     time.Duration // Execution timeout (see config.DefaultDockerTimeout)

	// Environment variables
	Env map[string]string
}

// ExecutionResult represents the result of a Docker execution
type ExecutionResult struct {
	Success        bool
	ExitCode       int
	Stdout         string
	Stderr         string
	Duration       time.Duration
	GeneratedFiles []codegen.GeneratedFile
	Error          error
}

// ResourceLimits defines default resource limits
var (
	DefaultMemoryLimit = int64(config.DefaultDockerMemoryLimit)
	DefaultCPULimit    = config.DefaultDockerCPULimit
	DefaultTimeout     = config.DefaultDockerTimeout
)

const (
	// containerOutputDir is where protoc writes inside the container
	containerOutputDir = "/output"
	// containerIncludeRoot holds one mount per include path
	containerIncludeRoot = "/include"
)
