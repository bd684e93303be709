package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"igfetch/pkg/config"
	"igfetch/pkg/logger"
)

var (
	// Version information, set with -ldflags at build time
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile   string
	logLevel     string
	outputDir    string
	engineBinary string
	strategies   []string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igfetch",
	Short: "Download the video behind a public Instagram post",
	Long: `igfetch retrieves the video of a public Instagram post or reel.

Three extraction methods are tried in order until one succeeds:
  - ytdlp_enhanced  the yt-dlp extraction engine
  - direct_api      Instagram's public JSON endpoints
  - html_scraping   metadata embedded in the post page

Run it once with 'igfetch fetch <url>' or as an HTTP service with 'igfetch serve'.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.igfetch.yaml or ~/.config/igfetch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "directory for downloaded videos")
	rootCmd.PersistentFlags().StringVar(&engineBinary, "engine-binary", "", "path to the yt-dlp executable")
	rootCmd.PersistentFlags().StringSliceVar(&strategies, "strategies", nil, "enabled methods (ytdlp_enhanced,direct_api,html_scraping)")

	rootCmd.SetVersionTemplate(`igfetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges flags that were set explicitly over file, env and
// defaults. extra carries command-local flags.
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	flags := make(map[string]interface{})
	for k, v := range extra {
		flags[k] = v
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if engineBinary != "" {
		flags["engine-binary"] = engineBinary
	}
	if cmd.Flags().Changed("strategies") {
		flags["strategies"] = strategies
	}
	return config.Load(configFile, flags)
}
