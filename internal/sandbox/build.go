package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/go-archive"
	"github.com/moby/patternmatcher/ignorefile"
)

// BuildImage builds the sandbox image from the build context directory.
// On failure the daemon's build log is written out before the error is returned.
func (s *DockerSandbox) BuildImage(ctx context.Context) error {
	buildCtx, err := tarBuildContext(s.opts.BuildContext)
	if err != nil {
		return err
	}
	defer buildCtx.Close()

	resp, err := s.client.ImageBuild(ctx, buildCtx, build.ImageBuildOptions{
		Tags:        []string{s.opts.ImageTag},
		Dockerfile:  s.opts.Dockerfile,
		Remove:      true,
		ForceRemove: true,
		BuildArgs:   map[string]*string{},
	})
	if err != nil {
		return fmt.Errorf("failed to build image %s: %w", s.opts.ImageTag, err)
	}
	defer resp.Body.Close()

	buildLog, err := readBuildLog(resp.Body, s.opts.ImageTag)
	if err != nil {
		var buildErr *BuildError
		if errors.As(err, &buildErr) {
			s.writeBuildLog(buildErr.Log)
		}
		return err
	}

	s.logger.Info("image built", "tag", s.opts.ImageTag, "log_lines", len(buildLog))
	return nil
}

func (s *DockerSandbox) writeBuildLog(lines []string) {
	fmt.Fprintln(s.buildLogOut, "Build error logs:")
	for _, line := range lines {
		fmt.Fprintln(s.buildLogOut, line)
	}
}

// readBuildLog drains the JSON message stream of an image build and returns
// the trimmed "stream" lines. A message carrying an error ends the build.
func readBuildLog(body io.Reader, tag string) ([]string, error) {
	var lines []string
	dec := json.NewDecoder(body)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			return lines, fmt.Errorf("failed to decode build output: %w", err)
		}
		if line := strings.TrimSpace(msg.Stream); line != "" {
			lines = append(lines, line)
		}
		if msg.Error != nil {
			return lines, &BuildError{Tag: tag, Message: msg.Error.Message, Log: lines}
		}
	}
}

// tarBuildContext archives dir, skipping paths matched by its .dockerignore.
func tarBuildContext(dir string) (io.ReadCloser, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve build context: %w", err)
	}

	excludes, err := readDockerignore(absDir)
	if err != nil {
		return nil, err
	}

	rc, err := archive.TarWithOptions(absDir, &archive.TarOptions{ExcludePatterns: excludes})
	if err != nil {
		return nil, fmt.Errorf("failed to archive build context %s: %w", absDir, err)
	}
	return rc, nil
}

func readDockerignore(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, ".dockerignore"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open .dockerignore: %w", err)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read .dockerignore: %w", err)
	}
	return patterns, nil
}
