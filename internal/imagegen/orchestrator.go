package imagegen

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/nft-marketplace/backend/internal/metrics"
	"github.com/nft-marketplace/backend/internal/models"
	"go.uber.org/zap"
)

// MinPromptLength is the shortest prompt sent to providers.
const MinPromptLength = 4

// Generator produces one image with one provider.
type Generator interface {
	Generate(ctx context.Context, provider, prompt string) (models.ImageBlob, error)
}

type Options struct {
	// Providers used when a request names none.
	DefaultProviders []string
	// Timeout bounds each provider call.
	Timeout time.Duration
	// A provider's breaker opens after BreakerFailures failures within the
	// last BreakerWindow calls and stays open for BreakerDelay.
	BreakerFailures uint
	BreakerWindow   uint
	BreakerDelay    time.Duration
}

// Orchestrator runs one prompt through a list of providers, one at a time and
// in order, collecting what succeeds.
type Orchestrator struct {
	gen  Generator
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker[models.ImageBlob]
}

func NewOrchestrator(gen Generator, opts Options, log *zap.Logger) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.BreakerWindow == 0 {
		opts.BreakerWindow = 10
	}
	if opts.BreakerFailures == 0 || opts.BreakerFailures > opts.BreakerWindow {
		opts.BreakerFailures = (opts.BreakerWindow + 1) / 2
	}
	if opts.BreakerDelay <= 0 {
		opts.BreakerDelay = 30 * time.Second
	}
	return &Orchestrator{
		gen:      gen,
		opts:     opts,
		log:      log,
		breakers: make(map[string]circuitbreaker.CircuitBreaker[models.ImageBlob]),
	}
}

// Generate returns ErrAllProvidersFailed, together with the result, only when
// at least one provider was tried and none succeeded. Missing service
// configuration stops the run with ErrConfigurationMissing.
func (o *Orchestrator) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if len(prompt) < MinPromptLength {
		return nil, models.ErrPromptTooShort
	}
	providers := req.Providers
	if len(providers) == 0 {
		providers = o.opts.DefaultProviders
	}

	result := &models.GenerationResult{
		Succeeded: []models.ImageBlob{},
		Failed:    []string{},
	}
	for _, provider := range providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blob, err := o.attempt(ctx, provider, prompt)
		if errors.Is(err, models.ErrConfigurationMissing) {
			return nil, err
		}
		if err != nil {
			result.Failed = append(result.Failed, provider)
			continue
		}
		result.Succeeded = append(result.Succeeded, blob)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(providers) > 0 && len(result.Succeeded) == 0 {
		return result, models.ErrAllProvidersFailed
	}
	return result, nil
}

func (o *Orchestrator) attempt(ctx context.Context, provider, prompt string) (models.ImageBlob, error) {
	cb := o.breaker(provider)
	callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	start := time.Now()
	blob, err := failsafe.With[models.ImageBlob](cb).WithContext(callCtx).Get(func() (models.ImageBlob, error) {
		return o.gen.Generate(callCtx, provider, prompt)
	})
	elapsed := time.Since(start)

	if errors.Is(err, models.ErrConfigurationMissing) {
		o.log.Error("image generation not configured", zap.Error(err))
		return models.ImageBlob{}, err
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		// open breakers reject without calling the provider
		metrics.RecordImageProvider(provider, "circuit_open", 0)
		o.log.Warn("image provider skipped, circuit open", zap.String("provider", provider))
		return models.ImageBlob{}, err
	}
	if err != nil {
		metrics.RecordImageProvider(provider, "failure", elapsed)
		fields := []zap.Field{zap.String("provider", provider), zap.Duration("elapsed", elapsed), zap.Error(err)}
		var perr *ProviderError
		if errors.As(err, &perr) {
			fields = append(fields, zap.Int("status", perr.StatusCode), zap.String("body", perr.Body))
		}
		o.log.Warn("image provider failed", fields...)
		return models.ImageBlob{}, err
	}

	metrics.RecordImageProvider(provider, "success", elapsed)
	o.log.Info("image generated", zap.String("provider", provider), zap.Duration("elapsed", elapsed))
	return blob, nil
}

func (o *Orchestrator) breaker(provider string) circuitbreaker.CircuitBreaker[models.ImageBlob] {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cb, ok := o.breakers[provider]; ok {
		return cb
	}
	cb := circuitbreaker.NewBuilder[models.ImageBlob]().
		WithFailureThresholdRatio(o.opts.BreakerFailures, o.opts.BreakerWindow).
		WithDelay(o.opts.BreakerDelay).
		WithSuccessThreshold(1).
		HandleIf(func(_ models.ImageBlob, err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, models.ErrConfigurationMissing)
		}).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			o.log.Warn("image provider circuit state change",
				zap.String("provider", provider),
				zap.String("from", stateName(e.OldState)),
				zap.String("to", stateName(e.NewState)),
			)
		}).
		Build()
	o.breakers[provider] = cb
	return cb
}

// BreakerOpen reports whether provider is currently short-circuited.
func (o *Orchestrator) BreakerOpen(provider string) bool {
	return o.breaker(provider).IsOpen()
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}
