package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	dc "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/ionosphere/repobuild/pkg/util/console"
)

// NewAPIClient connects to the Docker daemon from the environment and pings
// it, so a missing daemon fails fast with a clear message.
func NewAPIClient(ctx context.Context) (Client, error) {
	client, err := dc.NewClientWithOpts(dc.FromEnv, dc.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("error creating docker client: %w", err)
	}

	if _, err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("error pinging docker daemon: %w", err)
	}

	return &apiClient{client: client}, nil
}

type apiClient struct {
	client *dc.Client
}

func (c *apiClient) BuildImage(ctx context.Context, contextDir string, buildArgs map[string]string) (string, error) {
	console.Debugf("=== APIClient.BuildImage %s", contextDir)

	buildContext, err := tarDirectory(contextDir)
	if err != nil {
		return "", fmt.Errorf("failed to pack build context %s: %w", contextDir, err)
	}

	args := make(map[string]*string, len(buildArgs))
	for k, v := range buildArgs {
		v := v
		args[k] = &v
	}

	resp, err := c.client.ImageBuild(ctx, buildContext, build.ImageBuildOptions{
		Dockerfile: "Dockerfile",
		BuildArgs:  args,
		Remove:     true,
		Version:    build.BuilderV1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start image build: %w", err)
	}
	defer resp.Body.Close()

	imageID, err := parseBuildStream(resp.Body)
	if err != nil {
		return "", err
	}

	console.Debugf("built image %s", imageID)
	return imageID, nil
}

func (c *apiClient) RunAndExtract(ctx context.Context, imageID string, hostDir string, mountPoint string) ([]byte, error) {
	console.Debugf("=== APIClient.RunAndExtract %s -> %s", imageID, hostDir)

	containerCfg := &container.Config{
		Image: imageID,
	}
	hostCfg := &container.HostConfig{
		Binds: []string{fmt.Sprintf("%s:%s", hostDir, mountPoint)},
	}
	platform := &ocispec.Platform{
		Architecture: "amd64",
		OS:           "linux",
	}

	created, err := c.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, platform, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	// The container is removed on every exit path, success or failure.
	defer func() {
		removeCtx := context.WithoutCancel(ctx)
		if err := c.client.ContainerRemove(removeCtx, created.ID, container.RemoveOptions{Force: true}); err != nil {
			console.Warnf("failed to remove container %s: %s", created.ID, err)
		}
	}()

	if err := c.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	statusCh, errCh := c.client.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	var statusCode int64
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("error waiting for container: %w", err)
	case status := <-statusCh:
		statusCode = status.StatusCode
	}

	combined, stdout, stderr, err := c.containerOutput(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	if statusCode != 0 {
		return nil, &RunError{
			ContainerID: created.ID,
			StatusCode:  statusCode,
			Stdout:      stdout,
			Stderr:      stderr,
		}
	}
	return combined, nil
}

// containerOutput captures the container's logs, demuxed into stdout and
// stderr alongside an interleaved combined stream.
func (c *apiClient) containerOutput(ctx context.Context, containerID string) (combined, stdout, stderr []byte, err error) {
	logs, err := c.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read container logs: %w", err)
	}
	defer logs.Close()

	var combinedBuf, stdoutBuf, stderrBuf bytes.Buffer
	_, err = stdcopy.StdCopy(
		io.MultiWriter(&combinedBuf, &stdoutBuf),
		io.MultiWriter(&combinedBuf, &stderrBuf),
		logs,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to demux container logs: %w", err)
	}
	return combinedBuf.Bytes(), stdoutBuf.Bytes(), stderrBuf.Bytes(), nil
}
