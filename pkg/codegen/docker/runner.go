package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/platinummonkey/modgen/pkg/codegen/compiler"
)

// DockerRunner implements the Runner interface using Docker
type DockerRunner struct {
	client     *client.Client
	imageCache map[string]bool // Track pulled images
	cleanupIDs []string        // Container IDs to cleanup
}

// NewDockerRunner creates a new Docker runner
func NewDockerRunner() (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDockerNotAvailable, err)
	}

	// Verify Docker is available
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = cli.Ping(ctx)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("%w: %v", ErrDockerNotAvailable, err)
	}

	return &DockerRunner{
		client:     cli,
		imageCache: make(map[string]bool),
		cleanupIDs: make([]string, 0),
	}, nil
}

// Execute runs protoc in a container and collects the generated files
func (r *DockerRunner) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	result := &ExecutionResult{
		Success: false,
	}

	startTime := time.Now()
	defer func() {
		result.Duration = time.Since(startTime)
	}()

	applyDefaults(req)

	fullImage := req.Image
	if req.Tag != "" {
		fullImage = req.Image + ":" + req.Tag
	}

	if err := r.PullImage(ctx, fullImage); err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrImagePullFailed, err)
		return result, result.Error
	}

	outputDir, err := os.MkdirTemp("", "modgen-docker-output-*")
	if err != nil {
		result.Error = fmt.Errorf("failed to create output directory: %v", err)
		return result, result.Error
	}
	defer os.RemoveAll(outputDir)

	containerID, err := r.createContainer(ctx, fullImage, buildProtocCommand(req), outputDir, req)
	if err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrContainerFailed, err)
		return result, result.Error
	}
	r.cleanupIDs = append(r.cleanupIDs, containerID)

	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		result.Error = fmt.Errorf("%w: start failed: %v", ErrContainerFailed, err)
		return result, result.Error
	}

	// Wait for container with timeout
	execCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	statusCh, errCh := r.client.ContainerWait(execCtx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			result.Error = fmt.Errorf("%w: wait failed: %v", ErrContainerFailed, err)
			return result, result.Error
		}
	case status := <-statusCh:
		result.ExitCode = int(status.StatusCode)
	case <-execCtx.Done():
		result.Error = ErrTimeout
		return result, result.Error
	}

	logs, err := r.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err == nil {
		var stdout, stderr bytes.Buffer
		stdcopy.StdCopy(&stdout, &stderr, logs)
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()
		logs.Close()
	}

	if result.ExitCode != 0 {
		result.Error = fmt.Errorf("%w: exit code %d: %s", ErrContainerFailed, result.ExitCode, result.Stderr)
		return result, result.Error
	}

	generatedFiles, err := compiler.ReadTree(outputDir)
	if err != nil {
		result.Error = fmt.Errorf("failed to extract generated files: %v", err)
		return result, result.Error
	}

	if len(generatedFiles) == 0 {
		result.Error = ErrNoGeneratedFiles
		return result, result.Error
	}

	result.GeneratedFiles = generatedFiles
	result.Success = true
	return result, nil
}

// PullImage ensures the Docker image is available locally
func (r *DockerRunner) PullImage(ctx context.Context, imageRef string) error {
	if r.imageCache[imageRef] {
		return nil
	}

	_, err := r.client.ImageInspect(ctx, imageRef)
	if err == nil {
		r.imageCache[imageRef] = true
		return nil
	}

	pullCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	reader, err := r.client.ImagePull(pullCtx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %v", imageRef, err)
	}
	defer reader.Close()

	// Read pull output to completion
	io.Copy(io.Discard, reader)

	r.imageCache[imageRef] = true
	return nil
}

// Cleanup removes containers created by Execute
func (r *DockerRunner) Cleanup(ctx context.Context) error {
	for _, containerID := range r.cleanupIDs {
		// Force remove if still running
		r.client.ContainerRemove(ctx, containerID, container.RemoveOptions{
			Force:         true,
			RemoveVolumes: true,
		})
	}
	r.cleanupIDs = make([]string, 0)
	return nil
}

// Close releases resources
func (r *DockerRunner) Close() error {
	if err := r.Cleanup(context.Background()); err != nil {
		return err
	}

	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *DockerRunner) createContainer(ctx context.Context, imageRef string, cmd []string,
	outputDir string, req *ExecutionRequest) (string, error) {

	env := make([]string, 0, len(req.Env))
	for k, v := range req.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	config := &container.Config{
		Image:        imageRef,
		Cmd:          cmd,
		Env:          env,
		WorkingDir:   containerOutputDir,
		AttachStdout: true,
		AttachStderr: true,
	}

	hostConfig := &container.HostConfig{
		Binds: binds(req.IncludePaths, outputDir),
		Resources: container.Resources{
			Memory:   req.MemoryLimit,
			NanoCPUs: int64(req.CPULimit * 1e9),
		},
		AutoRemove: false, // We'll remove manually after extracting files
	}

	resp, err := r.client.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("failed to create container: %v", err)
	}

	return resp.ID, nil
}

func applyDefaults(req *ExecutionRequest) {
	if req.MemoryLimit == 0 {
		req.MemoryLimit = DefaultMemoryLimit
	}
	if req.CPULimit == 0 {
		req.CPULimit = DefaultCPULimit
	}
	if req.Timeout == 0 {
		req.Timeout = DefaultTimeout
	}
}

// containerIncludes returns the in-container mount point of each include path
func containerIncludes(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = path.Join(containerIncludeRoot, strconv.Itoa(i))
	}
	return paths
}

// binds mounts every include path read-only and the output directory writable
func binds(includes []string, outputDir string) []string {
	mounts := containerIncludes(len(includes))
	out := make([]string, 0, len(includes)+1)
	for i, include := range includes {
		out = append(out, fmt.Sprintf("%s:%s:ro", include, mounts[i]))
	}
	return append(out, fmt.Sprintf("%s:%s", outputDir, containerOutputDir))
}

// buildProtocCommand builds the in-container protoc command line
func buildProtocCommand(req *ExecutionRequest) []string {
	args := compiler.ProtocArgs(containerIncludes(len(req.IncludePaths)), req.Inputs, containerOutputDir, req.GoParameters)
	return append([]string{"protoc"}, args...)
}
