package docker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/modgen/pkg/codegen"
	"github.com/platinummonkey/modgen/pkg/codegen/compiler"
	"github.com/platinummonkey/modgen/pkg/codegen/config"
	"github.com/platinummonkey/modgen/pkg/codegen/protopath"
)

func TestApplyDefaults(t *testing.T) {
	req := &ExecutionRequest{Image: "test/image", Tag: "latest"}
	applyDefaults(req)

	assert.Equal(t, int64(512*1024*1024), req.MemoryLimit)
	assert.Equal(t, 1.0, req.CPULimit)
	assert.Equal(t, 5*time.Minute, req.Timeout)

	custom := &ExecutionRequest{MemoryLimit: 1, CPULimit: 2, Timeout: time.Second}
	applyDefaults(custom)
	assert.Equal(t, int64(1), custom.MemoryLimit)
	assert.Equal(t, 2.0, custom.CPULimit)
	assert.Equal(t, time.Second, custom.Timeout)
}

func TestBuildProtocCommand(t *testing.T) {
	tests := []struct {
		name     string
		req      *ExecutionRequest
		expected []string
	}{
		{
			name: "single include",
			req: &ExecutionRequest{
				IncludePaths: []string{"/host/protos"},
				Inputs:       []string{"test.proto"},
			},
			expected: []string{
				"protoc",
				"--proto_path=/include/0",
				"--go_out=/output",
				"test.proto",
			},
		},
		{
			name: "multiple includes and parameters",
			req: &ExecutionRequest{
				IncludePaths: []string{"/host/shared", "/host/protos"},
				Inputs:       []string{"yara.proto", "mem.proto"},
				GoParameters: []string{"paths=source_relative", "Mmem.proto=x/mem;mem"},
			},
			expected: []string{
				"protoc",
				"--proto_path=/include/0",
				"--proto_path=/include/1",
				"--go_out=/output",
				"--go_opt=paths=source_relative,Mmem.proto=x/mem;mem",
				"yara.proto",
				"mem.proto",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildProtocCommand(tt.req))
		})
	}
}

func TestBinds(t *testing.T) {
	assert.Equal(t, []string{
		"/host/shared:/include/0:ro",
		"/host/protos:/include/1:ro",
		"/tmp/out:/output",
	}, binds([]string{"/host/shared", "/host/protos"}, "/tmp/out"))
}

type fakeRunner struct {
	req    *ExecutionRequest
	result *ExecutionResult
	err    error
	closed bool
}

func (f *fakeRunner) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	f.req = req
	return f.result, f.err
}

func (f *fakeRunner) PullImage(ctx context.Context, image string) error { return nil }

func (f *fakeRunner) Cleanup(ctx context.Context) error { return nil }

func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

func fixtureConfig(t *testing.T) *compiler.Config {
	t.Helper()
	root, err := filepath.Abs("../testdata/lib")
	require.NoError(t, err)

	set, err := protopath.Resolve(protopath.Layout{
		Root:           root,
		SchemaDir:      config.DefaultSchemaDir,
		SharedIncludes: config.DefaultSharedIncludes,
		SharedInputs:   config.DefaultSharedInputs,
		Suffix:         config.DefaultSchemaSuffix,
	}, protopath.ExtraSpec{})
	require.NoError(t, err)

	cfg := compiler.NewConfig(set, t.TempDir())
	cfg.Backend = compiler.BackendDocker
	return cfg
}

func TestGenerator_Generate(t *testing.T) {
	cfg := fixtureConfig(t)
	runner := &fakeRunner{result: &ExecutionResult{
		Success:        true,
		GeneratedFiles: []codegen.GeneratedFile{codegen.NewGeneratedFile("mem.pb.go", []byte("package mem"))},
	}}
	gen := &Generator{Runner: runner, Image: "compiler:1", Log: logrus.New()}

	c, err := compiler.New(cfg, compiler.WithGenerator(gen))
	require.NoError(t, err)

	files, err := c.Bindings(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.FileExists(t, filepath.Join(cfg.OutDir, "mem.pb.go"))

	require.NotNil(t, runner.req)
	assert.Equal(t, "compiler:1", runner.req.Image)
	assert.Equal(t, cfg.IncludePaths, runner.req.IncludePaths)
	assert.Equal(t, cfg.Inputs, runner.req.Inputs)
	assert.Contains(t, runner.req.GoParameters, "paths=source_relative")

	require.NoError(t, gen.Close())
	assert.True(t, runner.closed)
}

func TestGenerator_ContainerFailure(t *testing.T) {
	cfg := fixtureConfig(t)
	runner := &fakeRunner{
		result: &ExecutionResult{ExitCode: 1, Stderr: "mem.proto: boom"},
		err:    errors.Join(ErrContainerFailed, errors.New("exit code 1: mem.proto: boom")),
	}

	_, err := (&Generator{Runner: runner}).Generate(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, compiler.ErrCompilationFailed)
	assert.ErrorIs(t, err, ErrContainerFailed)
	assert.Contains(t, err.Error(), "mem.proto: boom")
}

func TestGenerator_SchemaErrorSkipsContainer(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Inputs = append(cfg.Inputs, "missing.proto")
	runner := &fakeRunner{}

	_, err := (&Generator{Runner: runner}).Generate(context.Background(), cfg)
	assert.ErrorIs(t, err, compiler.ErrCompilationFailed)
	assert.Nil(t, runner.req)
}

// TestDockerRunner_Execute_Integration is an integration test that requires Docker
func TestDockerRunner_Execute_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if !isDockerAvailable() {
		t.Skip("Docker is not available")
	}

	runner, err := NewDockerRunner()
	if err != nil {
		t.Skipf("Cannot create Docker runner: %v", err)
	}
	defer runner.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.proto"), []byte(`
syntax = "proto3";
package test;
option go_package = "example.com/test";

message TestMessage {
  string name = 1;
}
`), 0644))

	result, err := runner.Execute(context.Background(), &ExecutionRequest{
		Image:        config.DefaultDockerImage,
		IncludePaths: []string{dir},
		Inputs:       []string{"test.proto"},
		GoParameters: []string{"paths=source_relative"},
		Timeout:      30 * time.Second,
	})
	if err != nil && (errors.Is(err, ErrImagePullFailed) || strings.Contains(err.Error(), "denied")) {
		t.Skipf("Compiler image not available: %v", err)
	}

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.NotEmpty(t, result.GeneratedFiles)
}

func TestDockerRunner_Cleanup(t *testing.T) {
	if !isDockerAvailable() {
		t.Skip("Docker is not available")
	}

	runner, err := NewDockerRunner()
	if err != nil {
		t.Skipf("Cannot create Docker runner: %v", err)
	}
	defer runner.Close()

	runner.cleanupIDs = []string{"nonexistent1", "nonexistent2"}

	// Cleanup should not fail even if containers don't exist
	err = runner.Cleanup(context.Background())
	assert.NoError(t, err)
	assert.Len(t, runner.cleanupIDs, 0)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDockerAvailable() bool {
	if !fileExists("/var/run/docker.sock") {
		return false
	}

	runner, err := NewDockerRunner()
	if err != nil {
		return false
	}
	runner.Close()
	return true
}
