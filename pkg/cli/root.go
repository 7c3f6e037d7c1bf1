package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ionosphere/repobuild/pkg/global"
	"github.com/ionosphere/repobuild/pkg/util/console"
)

func NewRootCommand() (*cobra.Command, error) {
	rootCmd := cobra.Command{
		Use:     "repobuild",
		Short:   "Build RPM and DEB packages for every supported platform",
		Version: fmt.Sprintf("%s (built %s)", global.Version, global.BuildTime),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if global.Verbose {
				console.SetLevel(console.DebugLevel)
			}
			cmd.SilenceUsage = true
		},
		SilenceErrors: true,
	}
	setPersistentFlags(&rootCmd)

	rootCmd.AddCommand(
		newBuildCommand(),
		newPlatformsCommand(),
	)

	return &rootCmd, nil
}

func setPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "Verbose output")
}
