package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Buck-Ouro/Jupiter/internal/config"
	"github.com/Buck-Ouro/Jupiter/internal/output"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(stringFlag(cmd, "format"))
			if err != nil {
				return err
			}

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), format, cfg.Redacted())
		},
	}
	cmd.Flags().String("format", "yaml", "output format: yaml, json")
	return cmd
}

func stringFlag(cmd *cobra.Command, name string) string {
	s, _ := cmd.Flags().GetString(name)
	return s
}
