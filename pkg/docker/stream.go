package docker

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/docker/docker/pkg/jsonmessage"
)

// tarDirectory packs dir into an uncompressed tar stream suitable as an
// image build context.
func tarDirectory(dir string) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.AddFS(os.DirFS(dir)); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

// parseBuildStream consumes the daemon's build response: a stream of JSON
// messages carrying build output, an aux message with the built image ID,
// and possibly a terminal error. It returns the image ID together with the
// structured log; if the stream reports an error the log is returned inside
// a *BuildError.
func parseBuildStream(r io.Reader) (string, error) {
	var (
		imageID  string
		entries  []LogEntry
		buildErr *BuildError
	)

	dec := json.NewDecoder(r)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}

		if msg.Stream != "" {
			entries = append(entries, LogEntry{Stream: msg.Stream})
		}
		if msg.Error != nil {
			entries = append(entries, LogEntry{ErrorDetail: msg.Error.Message})
			buildErr = &BuildError{Message: msg.Error.Message}
		}
		if msg.Aux != nil {
			var result struct {
				ID string `json:"ID"`
			}
			if err := json.Unmarshal(*msg.Aux, &result); err == nil && result.ID != "" {
				imageID = result.ID
			}
		}
	}

	if buildErr != nil {
		buildErr.Log = entries
		return "", buildErr
	}
	if imageID == "" {
		return "", errors.New("build stream ended without an image ID")
	}
	return imageID, nil
}
