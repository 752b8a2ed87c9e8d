package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Buck-Ouro/Jupiter/internal/output"
	"github.com/Buck-Ouro/Jupiter/internal/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return output.Write(cmd.OutOrStdout(), output.FormatJSON, version.Get())
			}
			if full, _ := cmd.Flags().GetBool("full"); full {
				fmt.Fprintln(cmd.OutOrStdout(), version.Full())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "apywatch", version.String())
			return nil
		},
	}
	cmd.Flags().Bool("full", false, "show commit, build date and platform")
	cmd.Flags().Bool("json", false, "print version information as JSON")
	return cmd
}
