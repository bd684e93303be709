package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/logger"
	"igfetch/pkg/pipeline"
	"igfetch/pkg/storage"
	"igfetch/pkg/ui"
)

var (
	fetchJSON       bool
	fetchNoProgress bool
)

// fetchCmd downloads a single post
var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download the video of one post",
	Long: `Download the video of one public Instagram post or reel into the output
directory, trying each enabled method in order.`,
	Example: `  igfetch fetch https://www.instagram.com/reel/C0abcDEF123/

  # Only the JSON endpoints, machine-readable output
  igfetch fetch --strategies direct_api --json https://www.instagram.com/p/C0abcDEF123/`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the result as JSON")
	fetchCmd.Flags().BoolVar(&fetchNoProgress, "no-progress", false, "do not draw a progress bar")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	// logs go to stderr so stdout stays clean for the result
	level := cfg.Logging.Level
	if !cmd.Flags().Changed("log-level") && level == "info" {
		level = "warn"
	}
	log, err := logger.NewWithWriter(os.Stderr, level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := storage.NewManager(cfg.Output.Directory, log)
	if err != nil {
		return err
	}
	if !fetchNoProgress && !fetchJSON && ui.IsTerminal(os.Stderr) {
		store.SetProgress(ui.NewProgress(os.Stderr))
	}

	p := pipeline.Build(cfg, pipeline.Components{Storage: store, Logger: log})
	res, err := p.Run(cmd.Context(), args[0])

	out := cmd.OutOrStdout()
	if fetchJSON {
		return printJSON(out, res, err)
	}

	printer := ui.NewPrinter(out)
	if err != nil {
		var e *errs.Error
		if errs.As(err, &e) && errs.IsClientFacing(err) {
			printer.Error(e.Message, nil)
			if e.Suggestion != "" {
				printer.Hint(e.Suggestion)
			}
			return fmt.Errorf("download failed")
		}
		return err
	}
	printer.Result(res)
	return nil
}

func printJSON(w io.Writer, res interface{}, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err != nil {
		body := map[string]string{"error": err.Error()}
		var e *errs.Error
		if errs.As(err, &e) && errs.IsClientFacing(err) {
			body["error"] = e.Message
			if e.Suggestion != "" {
				body["suggestion"] = e.Suggestion
			}
		}
		_ = enc.Encode(body)
		return fmt.Errorf("download failed")
	}
	return enc.Encode(res)
}
