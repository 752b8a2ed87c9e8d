// Package commands implements the CLI commands for apywatch.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Buck-Ouro/Jupiter/internal/config"
	"github.com/Buck-Ouro/Jupiter/internal/logger"
	"github.com/Buck-Ouro/Jupiter/internal/version"
)

// Viper keys for CLI-only settings.
const (
	keyConfigFile   = "config"
	keyDebug        = "debug"
	keyQuiet        = "quiet"
	keyLogJSON      = "log_json"
	keyLogFile      = "log_file"
	keyReportFormat = "report"
	keyHistoryFile  = "history_file"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "apywatch",
		Short: "Report a vault's current APY to Telegram",
		Long: `apywatch loads a yield page in headless Chrome through a proxy, reads the
"Current APY" figure and posts it to a Telegram chat.

Configuration comes from the environment:
  PROXY_HTTP     proxy URL, scheme://[user:pass@]host:port
  TELEGRAM_KEY   bot token
  CHAT_ID        destination chat

Any other setting can be overridden with APYWATCH_<KEY> or in .apywatch.yaml.

Examples:
  # One run, as a scheduler would invoke it
  apywatch

  # Debug logs and a JSON report on stdout
  apywatch --debug --report json

  # Show the effective configuration with secrets masked
  apywatch config`,
		Version:      version.String(),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.apywatch.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("json-logs", false, "log as JSON")
	flags.String("log-file", "", "also write JSON logs to this rotating file")

	rootCmd.Flags().String("report", "", "print a run report to stdout: json, jsonl, yaml")
	rootCmd.Flags().String("history", "", "append a JSONL run report to this file")

	_ = v.BindPFlag(keyConfigFile, flags.Lookup("config"))
	_ = v.BindPFlag(keyDebug, flags.Lookup("debug"))
	_ = v.BindPFlag(keyQuiet, flags.Lookup("quiet"))
	_ = v.BindPFlag(keyLogJSON, flags.Lookup("json-logs"))
	_ = v.BindPFlag(keyLogFile, flags.Lookup("log-file"))
	_ = v.BindPFlag(keyReportFormat, rootCmd.Flags().Lookup("report"))
	_ = v.BindPFlag(keyHistoryFile, rootCmd.Flags().Lookup("history"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initConfig(v); err != nil {
			return err
		}
		initLogger(v)
		return nil
	}

	rootCmd.AddCommand(newConfigCmd(v), newProbeCmd(v), newVersionCmd())
	return rootCmd
}

func initConfig(v *viper.Viper) error {
	config.Bind(v)

	if cfgFile := v.GetString(keyConfigFile); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".apywatch")
		v.SetConfigType("yaml")
	}

	// A missing default file is fine; an explicit or broken one is not.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return &config.ConfigurationError{Fields: []string{"--config"}, Err: err}
		}
	}
	return nil
}

func initLogger(v *viper.Viper) {
	logger.Init(logger.Options{
		Debug: v.GetBool(keyDebug),
		Quiet: v.GetBool(keyQuiet),
		JSON:  v.GetBool(keyLogJSON),
		File:  v.GetString(keyLogFile),
	})
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return newRootCmd().Execute()
}
