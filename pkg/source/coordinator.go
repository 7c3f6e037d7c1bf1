// Package source acquires package source archives, deduplicating concurrent
// downloads of the same package across platform builds.
package source

import (
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/ionosphere/repobuild/pkg/manifest"
	"github.com/ionosphere/repobuild/pkg/util/console"
)

// State of a source package download.
type State int

const (
	InProgress State = iota + 1
	Downloaded
	Failed
)

// Coordinator tracks the download state of every package by name, so that
// the network transfer for a given package happens at most once per process
// no matter how many platform builds request it. Failed downloads are
// re-claimable by a later caller.
//
// One Coordinator is shared by every build in a run; it is safe for
// concurrent use.
type Coordinator struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state map[string]State

	client *http.Client
}

// NewCoordinator returns an empty Coordinator.
func NewCoordinator() *Coordinator {
	c := &Coordinator{
		state:  make(map[string]State),
		client: &http.Client{},
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Ensure makes the package's source archive present under packageDir,
// downloading it if no other caller has already done so. The return value
// reports whether this call performed the transfer.
//
// If another caller is mid-download, Ensure blocks until that download
// reaches a terminal state and then re-evaluates: a Downloaded result
// returns immediately, a Failed result makes this caller the new owner of a
// fresh attempt. A failed transfer is reported only to the owner that
// performed it; waiters just observe the Failed state.
func (c *Coordinator) Ensure(pkg *manifest.Package, host manifest.Host, packageDir string) (bool, error) {
	c.mu.Lock()
	for {
		switch c.state[pkg.Name] {
		case Downloaded:
			// Already downloaded.
			c.mu.Unlock()
			return false, nil
		case InProgress:
			// Wait for a notification about the download, then try
			// again.
			c.cond.Wait()
		default:
			// Absent or Failed: no download in progress; claim it.
			c.state[pkg.Name] = InProgress
			c.mu.Unlock()
			return true, c.download(pkg, host, packageDir)
		}
	}
}

// download performs the owned transfer and records the terminal state.
func (c *Coordinator) download(pkg *manifest.Package, host manifest.Host, packageDir string) error {
	err := c.fetch(pkg, host, packageDir)

	c.mu.Lock()
	if err != nil {
		c.state[pkg.Name] = Failed
	} else {
		c.state[pkg.Name] = Downloaded
	}
	c.cond.Broadcast()
	c.mu.Unlock()

	return err
}

func (c *Coordinator) fetch(pkg *manifest.Package, host manifest.Host, packageDir string) error {
	if err := os.MkdirAll(packageDir, 0o755); err != nil {
		return err
	}

	archiveName, err := pkg.SourceArchiveName(host)
	if err != nil {
		return err
	}
	dest := filepath.Join(packageDir, archiveName)
	url := pkg.ResolvedDownloadURL(host)

	console.Debugf("Downloading %s to %s", url, dest)
	return transfer(c.client, url, dest)
}
