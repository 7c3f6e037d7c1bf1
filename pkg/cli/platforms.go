package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ionosphere/repobuild/pkg/platform"
	"github.com/ionosphere/repobuild/pkg/util/console"
)

func newPlatformsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the platforms packages are built for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out strings.Builder
			w := tabwriter.NewWriter(&out, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "OS\tARCH\tBASE IMAGE\tKIND")
			for _, p := range platform.Catalog {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.OSName, p.Arch, p.SourceImage, p.Kind)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			console.Output(strings.TrimRight(out.String(), "\n"))
			return nil
		},
	}
}
