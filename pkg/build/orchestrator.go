package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ionosphere/repobuild/pkg/docker"
	"github.com/ionosphere/repobuild/pkg/manifest"
	"github.com/ionosphere/repobuild/pkg/platform"
	"github.com/ionosphere/repobuild/pkg/source"
	"github.com/ionosphere/repobuild/pkg/util/console"
)

// Orchestrator drives the full platform x package matrix: platforms in
// catalog order, packages in manifest order, each pair through
// stage -> build -> export. The run aborts on the first failure.
type Orchestrator struct {
	Packages  []*manifest.Package
	Platforms []platform.Platform

	// Downloads is shared across all units so each package source is
	// fetched at most once per run.
	Downloads *source.Coordinator

	// NewBackend constructs a backend client. The sequential path calls
	// it once; the concurrent path calls it once per worker, since a
	// backend client is not assumed safe to share across goroutines.
	NewBackend func(ctx context.Context) (docker.Client, error)

	PackageRoot string
	BuildRoot   string
	DistRoot    string
	TemplateDir string

	KeepBuildDirs bool

	// Jobs is the number of units built concurrently. Zero or one means
	// sequential.
	Jobs int
}

type unit struct {
	pkg  *manifest.Package
	plat platform.Platform
}

// Run executes the whole matrix. The three filesystem roots are created if
// absent before any unit starts.
func (o *Orchestrator) Run(ctx context.Context) error {
	for _, root := range []string{o.PackageRoot, o.BuildRoot, o.DistRoot} {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return err
		}
	}
	console.Debugf("build root: %s", o.BuildRoot)
	console.Debugf("package root: %s", o.PackageRoot)

	units := make([]unit, 0, len(o.Platforms)*len(o.Packages))
	for _, plat := range o.Platforms {
		for _, pkg := range o.Packages {
			units = append(units, unit{pkg: pkg, plat: plat})
		}
	}

	if o.Jobs <= 1 {
		return o.runSequential(ctx, units)
	}
	return o.runConcurrent(ctx, units)
}

func (o *Orchestrator) runSequential(ctx context.Context, units []unit) error {
	backend, err := o.NewBackend(ctx)
	if err != nil {
		return err
	}
	for _, u := range units {
		if err := o.runUnit(ctx, backend, u); err != nil {
			return err
		}
	}
	return nil
}

// runConcurrent fans units out to o.Jobs workers, each with its own backend
// client. Cross-unit download dedup still goes through the shared
// coordinator; the first failure cancels the remaining units.
func (o *Orchestrator) runConcurrent(ctx context.Context, units []unit) error {
	eg, ctx := errgroup.WithContext(ctx)

	work := make(chan unit)
	eg.Go(func() error {
		defer close(work)
		for _, u := range units {
			select {
			case work <- u:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < o.Jobs; i++ {
		eg.Go(func() error {
			backend, err := o.NewBackend(ctx)
			if err != nil {
				return err
			}
			for u := range work {
				if err := o.runUnit(ctx, backend, u); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return eg.Wait()
}

func (o *Orchestrator) runUnit(ctx context.Context, backend docker.Client, u unit) error {
	console.Infof("Building %s-%s for %s (%s)", u.pkg.Name, u.pkg.Version, u.plat.OSName, u.plat.Arch)

	b, err := New(u.pkg, u.plat, backend, o.Downloads, Options{
		BuildRoot:    o.BuildRoot,
		PackageRoot:  o.PackageRoot,
		TemplateDir:  o.TemplateDir,
		KeepBuildDir: o.KeepBuildDirs,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Teardown(); err != nil {
			console.Warnf("failed to remove build directory %s: %s", b.BuildDir(), err)
		}
	}()

	if err := b.Stage(ctx); err != nil {
		return fmt.Errorf("failed to stage %s for %s: %w", u.pkg.Name, u.plat.OSName, err)
	}
	if err := b.BuildImage(ctx); err != nil {
		return fmt.Errorf("failed to build %s for %s: %w", u.pkg.Name, u.plat.OSName, err)
	}

	dest := filepath.Join(o.DistRoot, u.plat.OSName)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	if err := b.Export(ctx, dest); err != nil {
		return fmt.Errorf("failed to export %s for %s: %w", u.pkg.Name, u.plat.OSName, err)
	}
	return nil
}
