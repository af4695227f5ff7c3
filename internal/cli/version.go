package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TwigBush/restodir/internal/version"
)

// cmdVersion prints one line, or with -v the full build info in --output format.
func cmdVersion() *cobra.Command {
	var verbose bool
	c := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				return printOut(cmd.OutOrStdout(), version.Get())
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
	c.Flags().BoolVarP(&verbose, "verbose", "v", false, "print commit, build date and Go version")
	return c
}
