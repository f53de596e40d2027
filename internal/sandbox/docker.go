package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-units"
)

// DockerSandbox owns one Docker client and at most one live container.
// The container handle is empty before CreateContainer and after Cleanup.
// Calls are sequential; a DockerSandbox must not be shared between goroutines.
type DockerSandbox struct {
	client      DockerAPI
	opts        Options
	logger      *slog.Logger
	buildLogOut io.Writer
	containerID string
}

// New creates a sandbox backed by the Docker daemon configured in the environment.
func New(opts Options, logger *slog.Logger) (*DockerSandbox, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	// Verify Docker daemon is accessible
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("docker daemon not accessible: %w", err)
	}

	return NewWithClient(cli, opts, logger), nil
}

// NewWithClient creates a sandbox around an existing Docker API client.
func NewWithClient(api DockerAPI, opts Options, logger *slog.Logger) *DockerSandbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &DockerSandbox{
		client:      api,
		opts:        opts,
		logger:      logger.With("component", "sandbox"),
		buildLogOut: os.Stdout,
	}
}

// SetBuildLogOutput changes where the build log is written when a build fails.
func (s *DockerSandbox) SetBuildLogOutput(w io.Writer) {
	s.buildLogOut = w
}

// ContainerID returns the live container handle, or "" when there is none.
func (s *DockerSandbox) ContainerID() string {
	return s.containerID
}

// CreateContainer builds the image and starts the constrained container.
// A build failure leaves the handle unset. The container is created with
// AutoRemove, so stopping it in Cleanup also removes it from the daemon.
func (s *DockerSandbox) CreateContainer(ctx context.Context) error {
	if err := s.BuildImage(ctx); err != nil {
		return err
	}

	memory, err := units.RAMInBytes(s.opts.Memory)
	if err != nil {
		return fmt.Errorf("invalid memory limit %q: %w", s.opts.Memory, err)
	}
	pidsLimit := s.opts.PidsLimit

	containerConfig := &container.Config{
		Image: s.opts.ImageTag,
		Cmd:   s.opts.KeepAlive,
		Tty:   true,
		Env:   s.opts.envList(),
	}

	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: s.opts.Mount.Source,
				Target: s.opts.Mount.Target,
			},
		},
		Resources: container.Resources{
			Memory:    memory,
			CPUQuota:  s.opts.CPUQuota,
			PidsLimit: &pidsLimit,
		},
		SecurityOpt: s.opts.SecurityOpt,
		CapDrop:     s.opts.CapDrop,
		ExtraHosts:  s.opts.ExtraHosts,
		// Stopping the container removes it
		AutoRemove: true,
	}

	createResp, err := s.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	for _, w := range createResp.Warnings {
		s.logger.Warn("container create warning", "container", shortID(createResp.ID), "warning", w)
	}

	if err := s.client.ContainerStart(ctx, createResp.ID, container.StartOptions{}); err != nil {
		removeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = s.client.ContainerRemove(removeCtx, createResp.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("failed to start container: %w", err)
	}

	s.containerID = createResp.ID
	s.logger.Info("container started",
		"container", shortID(s.containerID),
		"image", s.opts.ImageTag,
		"memory", s.opts.Memory,
		"cpu_quota", s.opts.CPUQuota,
		"pids_limit", s.opts.PidsLimit,
	)
	return nil
}

// RunCode executes code with the sandbox interpreter as the unprivileged exec
// user and returns stdout and stderr combined. The container is created on
// first use. There is no timeout: the call returns when the process exits.
func (s *DockerSandbox) RunCode(ctx context.Context, code string) (string, error) {
	if s.containerID == "" {
		if err := s.CreateContainer(ctx); err != nil {
			return "", err
		}
	}

	execResp, err := s.client.ContainerExecCreate(ctx, s.containerID, container.ExecOptions{
		Cmd:          []string{s.opts.Interpreter, "-c", code},
		User:         s.opts.User,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("docker exec create failed: %w", err)
	}

	attach, err := s.client.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return "", fmt.Errorf("docker exec attach failed: %w", err)
	}
	defer attach.Close()

	var output bytes.Buffer
	if _, err := stdcopy.StdCopy(&output, &output, attach.Reader); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("docker exec output read failed: %w", err)
	}

	s.logger.Debug("exec finished", "container", shortID(s.containerID), "output_bytes", output.Len())
	return output.String(), nil
}

// Cleanup stops the container if one is live. A container that is already
// gone is expected; any other error is logged. The handle is always cleared,
// so calling Cleanup again is a no-op.
func (s *DockerSandbox) Cleanup(ctx context.Context) {
	if s.containerID == "" {
		return
	}
	id := s.containerID
	defer func() { s.containerID = "" }()

	if err := s.client.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		if cerrdefs.IsNotFound(err) {
			return
		}
		s.logger.Error("error during cleanup", "container", shortID(id), "error", err)
		return
	}
	s.logger.Info("container stopped", "container", shortID(id))
}

// Run executes code and tears the container down afterwards, whether or not
// execution succeeded.
func (s *DockerSandbox) Run(ctx context.Context, code string) (string, error) {
	defer s.Cleanup(context.WithoutCancel(ctx))
	return s.RunCode(ctx, code)
}

// Close releases the Docker client. It does not stop the container.
func (s *DockerSandbox) Close() error {
	return s.client.Close()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
