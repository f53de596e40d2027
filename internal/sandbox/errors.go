package sandbox

import "fmt"

// BuildError is returned when the daemon reports a failed image build.
// Log holds the "stream" lines emitted before the failure.
type BuildError struct {
	Tag     string
	Message string
	Log     []string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build of image %s failed: %s", e.Tag, e.Message)
}
