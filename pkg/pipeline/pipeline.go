// Package pipeline runs the extraction strategies for one post URL in a
// fixed order and returns the first success.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/instagram"
	"igfetch/pkg/logger"
	"igfetch/pkg/metrics"
	"igfetch/pkg/strategy"
)

// Options carries everything a Pipeline needs; there is no package state
type Options struct {
	Strategies []strategy.Strategy
	Logger     logger.Logger
	Metrics    *metrics.Metrics
}

// Pipeline is the fallback orchestrator
type Pipeline struct {
	strategies []strategy.Strategy
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// New creates a Pipeline. Strategies run in the order given.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Pipeline{
		strategies: opts.Strategies,
		logger:     log,
		metrics:    opts.Metrics,
	}
}

// Strategies returns the names of the configured strategies, in order
func (p *Pipeline) Strategies() []strategy.Name {
	names := make([]strategy.Name, len(p.strategies))
	for i, s := range p.strategies {
		names[i] = s.Name()
	}
	return names
}

// Validate checks a raw URL and builds its PostReference. Failures are
// validation errors carrying the client-facing message.
func Validate(rawURL string) (instagram.PostReference, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return instagram.PostReference{}, errs.Validation(errs.MsgNoURL)
	}
	if !instagram.IsInstagramURL(rawURL) {
		return instagram.PostReference{}, errs.Validation(errs.MsgInvalidURL)
	}
	ref := instagram.NewPostReference(rawURL)
	if !ref.HasShortcode() {
		return instagram.PostReference{}, errs.Validation(errs.MsgNoShortcode)
	}
	return ref, nil
}

// Run validates rawURL and tries each strategy in turn, stopping at the
// first success. Nothing is retried. When every strategy comes back empty
// the error is an exhaustion error wrapping each strategy's cause.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (*strategy.Result, error) {
	ref, err := Validate(rawURL)
	if err != nil {
		p.logger.WithField("url", rawURL).WithError(err).Warn("rejected request")
		p.metrics.ObservePipeline(metrics.ResultInvalid)
		return nil, err
	}

	log := p.logger.WithField("shortcode", ref.Shortcode)
	log.Info("processing post")

	var causes *multierror.Error
	for _, s := range p.strategies {
		name := s.Name()
		start := time.Now()
		out := p.attempt(ctx, s, ref)
		elapsed := time.Since(start)
		p.metrics.ObserveStrategy(string(name), out.Kind.String(), elapsed)

		if out.Kind == strategy.OutcomeSuccess && out.Result != nil {
			p.metrics.ObservePipeline(metrics.ResultSuccess)
			p.metrics.ObserveBytes(string(name), out.Result.FileSize)
			log.InfoWithFields("strategy succeeded", map[string]interface{}{
				"strategy": string(name),
				"file":     out.Result.FileName,
				"duration": elapsed,
			})
			return out.Result, nil
		}

		fields := map[string]interface{}{
			"strategy": string(name),
			"outcome":  out.Kind.String(),
			"reason":   out.Reason,
			"duration": elapsed,
		}
		if out.Kind == strategy.OutcomeError {
			log.ErrorWithFields("strategy failed", fields)
		} else {
			log.InfoWithFields("strategy found nothing", fields)
		}
		causes = multierror.Append(causes, fmt.Errorf("%s: %w", name, outcomeCause(out)))

		if ctx.Err() != nil {
			break
		}
	}

	p.metrics.ObservePipeline(metrics.ResultExhausted)
	log.Warn("all strategies exhausted")
	return nil, errs.Exhausted(causes.ErrorOrNil())
}

// attempt runs one strategy, converting a panic into an error outcome
func (p *Pipeline) attempt(ctx context.Context, s strategy.Strategy, ref instagram.PostReference) (out strategy.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorWithFields("strategy panicked", map[string]interface{}{
				"strategy": string(s.Name()),
				"panic":    fmt.Sprint(r),
				"stack":    string(debug.Stack()),
			})
			out = strategy.Failed(fmt.Errorf("panic: %v", r))
		}
	}()
	return s.Attempt(ctx, ref)
}

func outcomeCause(out strategy.Outcome) error {
	if err := out.Cause(); err != nil {
		return err
	}
	// a success without a result
	return fmt.Errorf("empty result")
}
