package build

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ionosphere/repobuild/pkg/docker"
	"github.com/ionosphere/repobuild/pkg/manifest"
	"github.com/ionosphere/repobuild/pkg/platform"
	"github.com/ionosphere/repobuild/pkg/source"
	"github.com/ionosphere/repobuild/pkg/util/files"
)

type matrixFixture struct {
	orchestrator *Orchestrator
	backend      *mockBackend
	gets         *atomic.Int64
	distRoot     string
}

// newMatrixFixture prepares a two-platform, one-package matrix backed by a
// GET-counting archive server.
func newMatrixFixture(t *testing.T) *matrixFixture {
	t.Helper()
	root := t.TempDir()

	var gets atomic.Int64
	payload := []byte("tarball bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	pkg := &manifest.Package{
		Name:        "foo",
		Version:     "1.0",
		DownloadURL: server.URL + "/{Name}-{Version}.tar.gz",
	}

	p1, ok := platform.Lookup("el7")
	require.True(t, ok)
	p2, ok := platform.Lookup("ubuntu-bionic")
	require.True(t, ok)

	packageRoot := filepath.Join(root, "packages")
	require.NoError(t, os.MkdirAll(filepath.Join(packageRoot, "foo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(packageRoot, "foo", "build.spec"), []byte("Name: foo\n"), 0o644))

	templateDir := filepath.Join(root, "templates")
	require.NoError(t, os.MkdirAll(templateDir, 0o755))
	for _, plat := range []platform.Platform{p1, p2} {
		require.NoError(t, os.WriteFile(
			filepath.Join(templateDir, plat.DockerfileTemplate()),
			[]byte("FROM "+plat.SourceImage+"\n"), 0o644))
	}

	backend := &mockBackend{}
	distRoot := filepath.Join(root, "dist")

	return &matrixFixture{
		orchestrator: &Orchestrator{
			Packages:  []*manifest.Package{pkg},
			Platforms: []platform.Platform{p1, p2},
			Downloads: source.NewCoordinator(),
			NewBackend: func(ctx context.Context) (docker.Client, error) {
				return backend, nil
			},
			PackageRoot: packageRoot,
			BuildRoot:   filepath.Join(root, "builds"),
			DistRoot:    distRoot,
			TemplateDir: templateDir,
		},
		backend:  backend,
		gets:     &gets,
		distRoot: distRoot,
	}
}

func TestRunBuildsFullMatrix(t *testing.T) {
	f := newMatrixFixture(t)

	require.NoError(t, f.orchestrator.Run(context.Background()))

	// One package requested by two platforms downloads exactly once.
	require.Equal(t, int64(1), f.gets.Load())

	builds, exports := f.backend.calls()
	require.Len(t, builds, 2)
	require.Len(t, exports, 2)

	// Platforms run in catalog order; artifacts land in per-platform
	// subdirectories of the dist root.
	require.Equal(t, filepath.Join(f.distRoot, "el7"), exports[0].hostDir)
	require.Equal(t, filepath.Join(f.distRoot, "ubuntu-bionic"), exports[1].hostDir)
	for _, export := range exports {
		require.Equal(t, "/export", export.mountPoint)
		exists, err := files.Exists(export.hostDir)
		require.NoError(t, err)
		require.True(t, exists)
	}
}

func TestRunCreatesRoots(t *testing.T) {
	f := newMatrixFixture(t)
	require.NoError(t, f.orchestrator.Run(context.Background()))

	for _, root := range []string{
		f.orchestrator.PackageRoot,
		f.orchestrator.BuildRoot,
		f.orchestrator.DistRoot,
	} {
		exists, err := files.Exists(root)
		require.NoError(t, err)
		require.True(t, exists)
	}
}

func TestRunAbortsOnBuildFailure(t *testing.T) {
	f := newMatrixFixture(t)
	f.backend.buildErr = &docker.BuildError{Message: "step 3 failed"}

	err := f.orchestrator.Run(context.Background())
	require.Error(t, err)

	var buildErr *docker.BuildError
	require.ErrorAs(t, err, &buildErr)

	// A failed build never reaches export, and the run stops at the
	// first failed unit.
	builds, exports := f.backend.calls()
	require.Len(t, builds, 1)
	require.Empty(t, exports)
}

func TestRunAbortsOnExportFailure(t *testing.T) {
	f := newMatrixFixture(t)
	f.backend.runErr = &docker.RunError{ContainerID: "c0ffee", StatusCode: 2, Stderr: []byte("\nno artifacts\n")}

	err := f.orchestrator.Run(context.Background())
	require.Error(t, err)

	var runErr *docker.RunError
	require.ErrorAs(t, err, &runErr)

	builds, exports := f.backend.calls()
	require.Len(t, builds, 1)
	require.Len(t, exports, 1)
}

func TestRunConcurrentDedupsDownloads(t *testing.T) {
	f := newMatrixFixture(t)
	f.orchestrator.Jobs = 2

	require.NoError(t, f.orchestrator.Run(context.Background()))

	require.Equal(t, int64(1), f.gets.Load())
	builds, exports := f.backend.calls()
	require.Len(t, builds, 2)
	require.Len(t, exports, 2)
}

func TestRunRemovesBuildDirs(t *testing.T) {
	f := newMatrixFixture(t)
	require.NoError(t, f.orchestrator.Run(context.Background()))

	entries, err := os.ReadDir(f.orchestrator.BuildRoot)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunKeepsBuildDirsWhenAsked(t *testing.T) {
	f := newMatrixFixture(t)
	f.orchestrator.KeepBuildDirs = true

	require.NoError(t, f.orchestrator.Run(context.Background()))

	entries, err := os.ReadDir(f.orchestrator.BuildRoot)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
