package docker

import "fmt"

// LogEntry is one structured entry from an image build log. Exactly one of
// Stream and ErrorDetail is set: Stream is a line of build step output,
// ErrorDetail is the daemon's error message for a failed step.
type LogEntry struct {
	Stream      string
	ErrorDetail string
}

// BuildError reports a failed image build, carrying the structured build
// log up to and including the failure.
type BuildError struct {
	Message string
	Log     []LogEntry
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("image build failed: %s", e.Message)
}

// RunError reports a container run that exited nonzero, carrying whatever
// output was captured.
type RunError struct {
	ContainerID string
	StatusCode  int64
	Stdout      []byte
	Stderr      []byte
}

func (e *RunError) Error() string {
	return fmt.Sprintf("container %s exited with status %d", e.ContainerID, e.StatusCode)
}
