package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	output  string
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "restodir",
	Short: "restodir restaurant directory server and admin tools",
}

func Execute() error { return rootCmd.Execute() }

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format: json|yaml")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "restodir.yaml", "config file path (optional)")

	rootCmd.AddCommand(cmdServe(), cmdMigrate(), cmdSeed(), cmdPolicy(), cmdTenant(), cmdVersion())

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:   "help",
		Short: "Show help",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Root().Help()
		},
	})
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "Use -h for help, for example: restodir serve --config restodir.yaml")
	}
}
