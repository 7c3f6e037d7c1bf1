// Package build drives one package/platform pair through staging, image
// build, and artifact export, and orchestrates the full build matrix.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ionosphere/repobuild/pkg/docker"
	"github.com/ionosphere/repobuild/pkg/global"
	"github.com/ionosphere/repobuild/pkg/manifest"
	"github.com/ionosphere/repobuild/pkg/platform"
	"github.com/ionosphere/repobuild/pkg/source"
	"github.com/ionosphere/repobuild/pkg/util/console"
	"github.com/ionosphere/repobuild/pkg/util/files"
)

var (
	// ErrNotStaged means BuildImage was called before Stage succeeded.
	ErrNotStaged = errors.New("files have not been staged for building")

	// ErrNotBuilt means Export was called before BuildImage succeeded.
	ErrNotBuilt = errors.New("image has not been built")
)

// Options configures a Build's filesystem roots and cleanup behavior.
type Options struct {
	// BuildRoot is the directory build context directories are created
	// under.
	BuildRoot string

	// PackageRoot is the directory package sources live under, one
	// subdirectory per package name.
	PackageRoot string

	// TemplateDir is where per-platform dockerfile templates are found.
	// Defaults to the current directory.
	TemplateDir string

	// KeepBuildDir suppresses context directory removal on Teardown, for
	// post-hoc inspection.
	KeepBuildDir bool
}

// Build drives one package on one platform through stage, image build and
// export. It owns a private build context directory for its lifetime; all
// of its state is local to the goroutine driving it except the shared
// download coordinator.
type Build struct {
	Package  *manifest.Package
	Platform platform.Platform

	host        manifest.Host
	backend     docker.Client
	downloads   *source.Coordinator
	packageDir  string
	buildDir    string
	templateDir string
	keepDir     bool

	staged  bool
	imageID string

	// copyFile replicates one file into the build context; picked per
	// stage based on whether source and context share a filesystem.
	copyFile func(src, dest string) error
}

// New creates a Build and its context directory: a fresh, uniquely named
// directory under opts.BuildRoot owned exclusively by this Build.
func New(pkg *manifest.Package, plat platform.Platform, backend docker.Client, downloads *source.Coordinator, opts Options) (*Build, error) {
	prefix := fmt.Sprintf("%s-%s-%s-%s",
		strings.ReplaceAll(pkg.Name, "/", "-"),
		strings.ReplaceAll(pkg.Version, "/", "-"),
		plat.OSName, plat.Arch)

	buildDir, err := os.MkdirTemp(opts.BuildRoot, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create build directory for %s on %s: %w", pkg.Name, plat.OSName, err)
	}
	buildDir, err = filepath.Abs(buildDir)
	if err != nil {
		return nil, err
	}

	templateDir := opts.TemplateDir
	if templateDir == "" {
		templateDir = "."
	}

	return &Build{
		Package:     pkg,
		Platform:    plat,
		host:        manifest.CurrentHost(),
		backend:     backend,
		downloads:   downloads,
		packageDir:  filepath.Join(opts.PackageRoot, pkg.Name),
		buildDir:    buildDir,
		templateDir: templateDir,
		keepDir:     opts.KeepBuildDir,
	}, nil
}

// BuildDir is the context directory handed to the build backend.
func (b *Build) BuildDir() string {
	return b.buildDir
}

// SourceArchivePath is the full path of the downloaded source archive.
func (b *Build) SourceArchivePath() (string, error) {
	name, err := b.Package.SourceArchiveName(b.host)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.packageDir, name), nil
}

// buildArgs are passed to the image build, parameterizing the recipe for
// this package and platform.
func (b *Build) buildArgs() map[string]string {
	archiveName, _ := b.Package.SourceArchiveName(b.host)
	return map[string]string{
		"ARCH":           b.Platform.Arch,
		"OS_NAME":        b.Platform.OSName,
		"PACKAGE":        b.Package.Name,
		"REGION":         global.Region,
		"REL":            global.Release,
		"SOURCE_ARCHIVE": archiveName,
		"VERSION":        b.Package.Version,
	}
}

// Stage assembles the build context: the package source tree, the source
// archive, and the platform's dockerfile template. It runs once per Build;
// any failure leaves the Build unstaged and must be treated as terminal.
func (b *Build) Stage(ctx context.Context) error {
	if _, err := b.downloads.Ensure(b.Package, b.host, b.packageDir); err != nil {
		return err
	}

	archivePath, err := b.SourceArchivePath()
	if err != nil {
		return err
	}

	// Are the package directory and build directory on the same
	// filesystem? If so, hard-link instead of copying to save disk space
	// and time. Both strategies produce identical trees.
	if b.copyFile == nil {
		same, packageDev, buildDev, err := files.SameDevice(b.packageDir, b.buildDir)
		if err != nil {
			return err
		}
		if same {
			console.Debug("Package directory and build directory reside on the same filesystem; using link to copy files")
			b.copyFile = os.Link
		} else {
			console.Debugf("Package directory and build directory reside on different filesystems (%d vs %d); using copy to copy files", packageDev, buildDev)
			b.copyFile = files.CopyFile
		}
	}

	console.Debugf("Copying (recursively) %s to %s", b.packageDir, b.buildDir)
	if err := b.replicateTree(filepath.Base(archivePath)); err != nil {
		return err
	}

	// Copy the source archive itself.
	stagedArchive := filepath.Join(b.buildDir, filepath.Base(archivePath))
	console.Debugf("Copying %s to %s", archivePath, stagedArchive)
	absArchive, err := filepath.Abs(archivePath)
	if err != nil {
		return err
	}
	if err := b.copyFile(absArchive, stagedArchive); err != nil {
		return err
	}

	// Copy the dockerfile template under the fixed recipe name.
	template := filepath.Join(b.templateDir, b.Platform.DockerfileTemplate())
	stagedDockerfile := filepath.Join(b.buildDir, "Dockerfile")
	console.Debugf("Copying %s to %s", template, stagedDockerfile)
	absTemplate, err := filepath.Abs(template)
	if err != nil {
		return err
	}
	if err := b.copyFile(absTemplate, stagedDockerfile); err != nil {
		return err
	}

	b.staged = true
	return nil
}

// replicateTree copies the package source tree into the build context,
// preserving relative structure. Directories are created explicitly since
// the context root already exists. skipName is the archive's filename,
// excluded here because it is staged separately.
func (b *Build) replicateTree(skipName string) error {
	root, err := filepath.Abs(b.packageDir)
	if err != nil {
		return err
	}

	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(b.buildDir, rel)

		if entry.IsDir() {
			console.Debugf("Creating %s", target)
			return os.Mkdir(target, 0o755)
		}
		if rel == skipName {
			return nil
		}
		console.Debugf("Copying %s to %s", path, target)
		return b.copyFile(path, target)
	})
}

// BuildImage builds the context into an image. Stage must have succeeded
// first; calling out of order is a caller bug, not an environment error.
func (b *Build) BuildImage(ctx context.Context) error {
	if !b.staged {
		return ErrNotStaged
	}

	imageID, err := b.backend.BuildImage(ctx, b.buildDir, b.buildArgs())
	if err != nil {
		console.Errorf("Failed to build %s-%s (%s %s): %s", b.Package.Name,
			b.Package.Version, b.Platform.OSName, b.Platform.Arch, err)

		var buildErr *docker.BuildError
		if errors.As(err, &buildErr) {
			for _, entry := range buildErr.Log {
				if entry.Stream != "" {
					console.Infof("    %s", StripPadding(entry.Stream))
				}
				if entry.ErrorDetail != "" {
					console.Errorf("    %s", StripPadding(entry.ErrorDetail))
				}
			}
		}
		return err
	}

	b.imageID = imageID
	return nil
}

// Export runs the built image with destRoot bound inside the container,
// collecting the artifacts the recipe writes to the export mount point.
func (b *Build) Export(ctx context.Context, destRoot string) error {
	if b.imageID == "" {
		return ErrNotBuilt
	}

	output, err := b.backend.RunAndExtract(ctx, b.imageID, destRoot, global.ExportMountPoint)
	if err != nil {
		console.Errorf("Failed to export %s-%s (%s %s): %s", b.Package.Name,
			b.Package.Version, b.Platform.OSName, b.Platform.Arch, err)

		var runErr *docker.RunError
		if errors.As(err, &runErr) {
			if len(runErr.Stdout) > 0 {
				console.Infof("    %s", StripPadding(string(runErr.Stdout)))
			}
			if len(runErr.Stderr) > 0 {
				console.Errorf("    %s", StripPadding(string(runErr.Stderr)))
			}
		}
		return err
	}

	console.Debugf("Export logs: %s", output)
	return nil
}

// Teardown removes the build context directory unless the Build was
// created with KeepBuildDir. It runs on every exit path.
func (b *Build) Teardown() error {
	if b.keepDir {
		console.Debugf("Keeping build directory %s", b.buildDir)
		return nil
	}
	return os.RemoveAll(b.buildDir)
}
