package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"igfetch/internal/server"
	"igfetch/internal/worker"
	"igfetch/pkg/logger"
	"igfetch/pkg/metrics"
	"igfetch/pkg/pipeline"
	"igfetch/pkg/storage"
	"igfetch/pkg/ui"
	"igfetch/pkg/ytdlp"
)

var (
	serveHost    string
	servePort    int
	serveWorkers int
)

// serveCmd runs the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download HTTP service",
	Long: `Run the HTTP service.

Endpoints:
  POST /download              {"url": "..."} downloads a post's video
  GET  /downloads/{filename}  serves a downloaded file
  GET  /health                service status and enabled methods
  GET  /metrics               Prometheus metrics

Downloaded files older than output.max_age are removed on startup and
every output.sweep_interval.`,
	Example: `  # Listen on the default port 8001
  igfetch serve

  # Custom port and worker count
  igfetch serve --port 9000 --workers 8`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "concurrent pipeline runs")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]interface{}{
		"host":    serveHost,
		"port":    servePort,
		"workers": serveWorkers,
	})
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.Logo()

	store, err := storage.NewManager(cfg.Output.Directory, log)
	if err != nil {
		return err
	}

	engine := ytdlp.NewExecEngine(cfg.Extraction.EngineBinary, cfg.Extraction.EngineTimeout, log)
	if !engine.Available() {
		log.WithField("binary", cfg.Extraction.EngineBinary).Warn("extraction engine not found; ytdlp_enhanced will fail over")
	}

	m := metrics.New()
	p := pipeline.Build(cfg, pipeline.Components{
		Storage: store,
		Engine:  engine,
		Logger:  log,
		Metrics: m,
	})

	ctx := cmd.Context()
	sweeperDone := store.StartSweeper(ctx, cfg.Output.SweepInterval, cfg.Output.MaxAge, m.ObserveSweep)

	pool := worker.NewPool(cfg.Server.Workers, cfg.Server.QueueSize, p, m, log)
	pool.Start()

	srv := server.New(server.Options{
		Jobs:           pool,
		Storage:        store,
		Strategies:     p.Strategies(),
		Metrics:        m,
		Logger:         log,
		RequestTimeout: cfg.Server.RequestTimeout,
		Version:        version,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoWithFields("server listening", map[string]interface{}{
			"addr":       httpServer.Addr,
			"output_dir": store.Dir(),
			"methods":    p.Strategies(),
			"workers":    cfg.Server.Workers,
		})
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			pool.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	pool.Stop()
	<-sweeperDone

	log.Info("server stopped")
	return nil
}
