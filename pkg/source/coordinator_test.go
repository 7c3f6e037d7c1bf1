package source

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ionosphere/repobuild/pkg/manifest"
)

var testHost = manifest.Host{Arch: "x86_64", System: "Linux"}

func testPackage(serverURL string) *manifest.Package {
	return &manifest.Package{
		Name:        "foo",
		Version:     "1.0",
		DownloadURL: serverURL + "/{Name}-{Version}.tar.gz",
	}
}

func TestEnsureDownloadsOnce(t *testing.T) {
	var gets atomic.Int64
	var lastPath atomic.Value
	payload := []byte("source archive contents")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastPath.Store(r.URL.Path)
		gets.Add(1)
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	pkg := testPackage(server.URL)
	packageDir := filepath.Join(t.TempDir(), "foo")
	coordinator := NewCoordinator()

	const workers = 8
	performed := make([]bool, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			performed[i], errs[i] = coordinator.Ensure(pkg, testHost, packageDir)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int64(1), gets.Load(), "transfer must run at most once per package")
	require.Equal(t, "/foo-1.0.tar.gz", lastPath.Load())

	downloads := 0
	for _, did := range performed {
		if did {
			downloads++
		}
	}
	require.Equal(t, 1, downloads, "exactly one worker owned the download")

	contents, err := os.ReadFile(filepath.Join(packageDir, "foo-1.0.tar.gz"))
	require.NoError(t, err)
	require.Equal(t, payload, contents)
}

func TestEnsureShortReadIsTransferError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare 1000 bytes, deliver 999 and close.
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write(make([]byte, 999))
	}))
	defer server.Close()

	pkg := testPackage(server.URL)
	packageDir := filepath.Join(t.TempDir(), "foo")
	coordinator := NewCoordinator()

	_, err := coordinator.Ensure(pkg, testHost, packageDir)
	require.Error(t, err)

	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	require.Equal(t, int64(999), transferErr.Read)
	require.Equal(t, int64(1000), transferErr.Expected)

	coordinator.mu.Lock()
	require.Equal(t, Failed, coordinator.state["foo"])
	coordinator.mu.Unlock()
}

func TestEnsureFailedIsReclaimable(t *testing.T) {
	payload := []byte("second time lucky")
	var attempts atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Content-Length", "1000")
			_, _ = w.Write(make([]byte, 10))
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	pkg := testPackage(server.URL)
	packageDir := filepath.Join(t.TempDir(), "foo")
	coordinator := NewCoordinator()

	did, err := coordinator.Ensure(pkg, testHost, packageDir)
	require.True(t, did)
	require.Error(t, err)

	// The failed state is re-claimable by the next caller.
	did, err = coordinator.Ensure(pkg, testHost, packageDir)
	require.True(t, did)
	require.NoError(t, err)
	require.Equal(t, int64(2), attempts.Load())

	contents, err := os.ReadFile(filepath.Join(packageDir, "foo-1.0.tar.gz"))
	require.NoError(t, err)
	require.Equal(t, payload, contents)
}

func TestEnsureDistinctPackagesDownloadIndependently(t *testing.T) {
	var gets atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		body := []byte(fmt.Sprintf("archive for %s", r.URL.Path))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	}))
	defer server.Close()

	coordinator := NewCoordinator()
	root := t.TempDir()

	for _, name := range []string{"alpha", "beta"} {
		pkg := &manifest.Package{
			Name:        name,
			Version:     "1.0",
			DownloadURL: server.URL + "/{Name}-{Version}.tar.gz",
		}
		did, err := coordinator.Ensure(pkg, testHost, filepath.Join(root, name))
		require.NoError(t, err)
		require.True(t, did)
	}

	require.Equal(t, int64(2), gets.Load())
}
