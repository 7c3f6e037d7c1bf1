package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ionosphere/repobuild/pkg/build"
	"github.com/ionosphere/repobuild/pkg/docker"
	"github.com/ionosphere/repobuild/pkg/global"
	"github.com/ionosphere/repobuild/pkg/manifest"
	"github.com/ionosphere/repobuild/pkg/platform"
	"github.com/ionosphere/repobuild/pkg/source"
)

var (
	manifestFlag      string
	packageRootFlag   string
	buildRootFlag     string
	distRootFlag      string
	templateDirFlag   string
	keepBuildDirsFlag bool
	jobsFlag          int
)

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build every package in the manifest for every platform",
		Args:  cobra.NoArgs,
		RunE:  buildMatrix,
	}

	cmd.Flags().StringVar(&manifestFlag, "manifest", global.ManifestFilename, "Package manifest to build from")
	cmd.Flags().StringVar(&packageRootFlag, "package-root", "./packages", "Directory holding package sources and downloaded archives")
	cmd.Flags().StringVar(&buildRootFlag, "build-root", "./builds", "Directory build contexts are staged under")
	cmd.Flags().StringVar(&distRootFlag, "dist-root", "./dist", "Directory finished artifacts are exported to")
	cmd.Flags().StringVar(&templateDirFlag, "template-dir", ".", "Directory holding per-platform dockerfile templates")
	cmd.Flags().BoolVar(&keepBuildDirsFlag, "keep-build-dirs", false, "Keep build context directories for debugging")
	cmd.Flags().IntVar(&jobsFlag, "jobs", 1, "Number of builds to run concurrently")

	return cmd
}

func buildMatrix(cmd *cobra.Command, args []string) error {
	packages, err := manifest.Load(manifestFlag)
	if err != nil {
		return err
	}

	packageRoot, err := filepath.Abs(packageRootFlag)
	if err != nil {
		return err
	}
	buildRoot, err := filepath.Abs(buildRootFlag)
	if err != nil {
		return err
	}
	distRoot, err := filepath.Abs(distRootFlag)
	if err != nil {
		return err
	}

	orchestrator := &build.Orchestrator{
		Packages:      packages,
		Platforms:     platform.Catalog,
		Downloads:     source.NewCoordinator(),
		NewBackend:    docker.NewAPIClient,
		PackageRoot:   packageRoot,
		BuildRoot:     buildRoot,
		DistRoot:      distRoot,
		TemplateDir:   templateDirFlag,
		KeepBuildDirs: keepBuildDirsFlag,
		Jobs:          jobsFlag,
	}

	return orchestrator.Run(cmd.Context())
}
