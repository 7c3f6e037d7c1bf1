// Package docker is the build backend adapter: it turns a staged build
// context into an image, and runs that image to extract built artifacts.
package docker

import "context"

// Client is the interface the build pipeline requires of the backend.
//
// Backend clients are not assumed to be safe for concurrent use; a
// concurrent orchestrator constructs one Client per worker.
type Client interface {
	// BuildImage builds an image from the context directory, which must
	// contain a Dockerfile at its root, and returns the image ID.
	// Build failures carry the structured build log as a *BuildError.
	BuildImage(ctx context.Context, contextDir string, buildArgs map[string]string) (string, error)

	// RunAndExtract runs the image with hostDir bound at mountPoint
	// inside the container and returns the combined output. The
	// container is removed after the run regardless of outcome. Run
	// failures carry the captured stdout/stderr as a *RunError.
	RunAndExtract(ctx context.Context, imageID string, hostDir string, mountPoint string) ([]byte, error)
}
