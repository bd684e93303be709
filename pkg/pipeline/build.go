package pipeline

import (
	"net/http"

	"igfetch/pkg/config"
	"igfetch/pkg/instagram"
	"igfetch/pkg/logger"
	"igfetch/pkg/metrics"
	"igfetch/pkg/storage"
	"igfetch/pkg/strategy"
	"igfetch/pkg/ytdlp"
)

// Components are the shared collaborators Build wires into strategies.
// Zero fields get working defaults, except Storage which is required.
type Components struct {
	Storage    *storage.Manager
	Engine     ytdlp.Engine
	HTTPClient *http.Client
	Rotator    *instagram.Rotator
	Logger     logger.Logger
	Metrics    *metrics.Metrics
}

// Build assembles a Pipeline from configuration. Enabled strategies always
// run in the fixed managed, API, embed order.
func Build(cfg *config.Config, c Components) *Pipeline {
	if c.Logger == nil {
		c.Logger = logger.NewNopLogger()
	}
	if c.Rotator == nil {
		c.Rotator = instagram.NewRotator(nil)
	}
	if c.Engine == nil {
		c.Engine = ytdlp.NewExecEngine(cfg.Extraction.EngineBinary, cfg.Extraction.EngineTimeout, c.Logger)
	}

	deps := strategy.Deps{
		Client:          instagram.NewClient(c.HTTPClient, c.Logger),
		Storage:         c.Storage,
		Rotator:         c.Rotator,
		BaseURL:         cfg.Extraction.BaseURL,
		MetadataTimeout: cfg.Extraction.MetadataTimeout,
		StreamTimeout:   cfg.Extraction.StreamTimeout,
		Logger:          c.Logger,
	}

	var strategies []strategy.Strategy
	for _, name := range cfg.OrderedStrategies() {
		switch name {
		case config.StrategyManaged:
			strategies = append(strategies, strategy.NewManagedStrategy(c.Engine, c.Storage, c.Rotator, cfg.Extraction.EngineRetries, c.Logger))
		case config.StrategyAPI:
			strategies = append(strategies, strategy.NewAPIStrategy(deps))
		case config.StrategyEmbed:
			strategies = append(strategies, strategy.NewEmbedStrategy(deps))
		}
	}

	return New(Options{
		Strategies: strategies,
		Logger:     c.Logger,
		Metrics:    c.Metrics,
	})
}
