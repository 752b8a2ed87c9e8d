package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Buck-Ouro/Jupiter/internal/browser"
	"github.com/Buck-Ouro/Jupiter/internal/config"
	"github.com/Buck-Ouro/Jupiter/internal/scraper"
)

// staticProbe is replaced in tests.
var staticProbe = scraper.StaticProbe

func newProbeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check the proxy without starting a browser",
		Long: `Fetch the probe URL (default https://httpbin.org/ip) through PROXY_HTTP with a
plain HTTP client and print what it returned. Only PROXY_HTTP is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Bind(v)
			proxy, err := config.ParseProxy(v.GetString(config.KeyProxy))
			if err != nil {
				return err
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")

			res, err := staticProbe(v.GetString(config.KeyProbeURL), proxy, browser.DefaultUserAgent, timeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s via %s (%d, %s)\n%s\n",
				res.URL, proxy.Redacted(), res.StatusCode, res.Duration.Round(time.Millisecond), res.Body)
			return nil
		},
	}
	cmd.Flags().Duration("timeout", scraper.DefaultStaticTimeout, "request timeout")
	return cmd
}
