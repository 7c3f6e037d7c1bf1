package source

import (
	"fmt"
	"io"
	"net/http"
	"os"
)

const readBufferSize = 1 << 20

// TransferError reports a source download that ended before the declared
// content length was reached.
type TransferError struct {
	URL      string
	Read     int64
	Expected int64
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("failed to read entire contents of %s: read %d byte(s); expected %d byte(s)",
		e.URL, e.Read, e.Expected)
}

// transfer streams url to dest with a fixed-size read buffer, validating
// that the body delivers exactly the declared content length. A single
// attempt is made; retry policy belongs to the caller.
func transfer(client *http.Client, url string, dest string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	if resp.ContentLength < 0 {
		return fmt.Errorf("GET %s: no Content-Length in response", url)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	buffer := make([]byte, readBufferSize)
	var totalRead int64

	for totalRead < resp.ContentLength {
		nRead, readErr := resp.Body.Read(buffer)
		if nRead > 0 {
			if _, err := out.Write(buffer[:nRead]); err != nil {
				return err
			}
			totalRead += int64(nRead)
			continue
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			// The stream ended short of the declared length.
			return &TransferError{URL: url, Read: totalRead, Expected: resp.ContentLength}
		}
		if readErr != nil {
			return fmt.Errorf("GET %s: %w", url, readErr)
		}
	}

	return out.Close()
}
