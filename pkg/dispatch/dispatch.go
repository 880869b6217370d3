// Package dispatch sends a prompt to the upstream router, retrying and
// falling back across a ranked list of models, and caches successful
// responses.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cvforge/cvforge/pkg/cache"
	"github.com/cvforge/cvforge/pkg/cache/memory"
	"github.com/cvforge/cvforge/pkg/config"
	"github.com/cvforge/cvforge/pkg/metrics"
	"github.com/cvforge/cvforge/pkg/models"
	"github.com/cvforge/cvforge/pkg/quality"
	"github.com/cvforge/cvforge/pkg/registry"
	"github.com/cvforge/cvforge/pkg/upstream"
)

// ErrExhausted is wrapped by the error of a result whose every candidate
// model failed.
var ErrExhausted = errors.New("all models failed")

// ReasonPrimaryFailed is recorded when dispatch moves past the primary model.
const ReasonPrimaryFailed = "primary_model_failed"

const (
	defaultMaxRetries = 2
	defaultBackoff    = time.Second
	defaultCacheTTL   = time.Hour
	defaultCacheSize  = 100
)

// Completer performs one upstream chat-completion call.
type Completer interface {
	Complete(ctx context.Context, req models.ChatCompletionRequest) (*upstream.Response, error)
}

// Request is one logical prompt to dispatch.
type Request struct {
	ID      string
	Task    models.TaskType
	System  string
	Prompt  string
	Premium bool
	// Model, when set and usable on the caller's tier, replaces the
	// preferred primary model.
	Model string
	// MaxTokens, when positive, replaces the computed token budget. It is
	// still capped by the model's ceiling.
	MaxTokens int
}

// Dispatcher owns the cache and metrics it writes to. It is safe for
// concurrent use.
type Dispatcher struct {
	registry   *registry.Registry
	client     Completer
	keyErr     error
	cache      cache.Cache
	metrics    *metrics.Recorder
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration
	sleep      func(context.Context, time.Duration) error
	now        func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCache replaces the default in-memory cache. A nil cache disables
// caching.
func WithCache(c cache.Cache) Option {
	return func(d *Dispatcher) { d.cache = c }
}

// WithMetrics replaces the default recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMaxRetries sets the number of attempts made against each model.
func WithMaxRetries(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxRetries = n
		}
	}
}

// WithBackoff sets the base delay between attempts on the same model. The
// delay doubles after each failed attempt.
func WithBackoff(base time.Duration) Option {
	return func(d *Dispatcher) { d.backoff = base }
}

// WithSleep replaces the context-aware sleep used for backoff.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = fn }
}

// WithClock overrides the time source used for latency.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a Dispatcher. The API key is validated once here; an invalid
// key makes every Dispatch return a config failure without network access.
func New(reg *registry.Registry, client Completer, apiKey string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:   reg,
		client:     client,
		keyErr:     config.ValidateAPIKey(apiKey),
		cache:      memory.New(defaultCacheTTL, defaultCacheSize),
		metrics:    metrics.NewRecorder(),
		logger:     slog.New(slog.DiscardHandler),
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		sleep:      sleepContext,
		now:        time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	if d.metrics == nil {
		d.metrics = metrics.NewRecorder()
	}
	return d
}

// Metrics returns the recorder the dispatcher writes to.
func (d *Dispatcher) Metrics() *metrics.Recorder { return d.metrics }

// Cache returns the response cache, or nil when caching is disabled.
func (d *Dispatcher) Cache() cache.Cache { return d.cache }

// Registry returns the model registry.
func (d *Dispatcher) Registry() *registry.Registry { return d.registry }

// Ready reports whether the dispatcher can contact the upstream at all.
func (d *Dispatcher) Ready() error { return d.keyErr }

// Dispatch runs req against the candidate models in order and returns the
// first usable response. Failures never escape as errors; they are reported
// through the result's Kind and Err.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) models.DispatchResult {
	start := d.now()
	log := d.logger.With("task", req.Task, "tier", models.TierName(req.Premium))
	if req.ID != "" {
		log = log.With("request_id", req.ID)
	}

	if d.keyErr != nil {
		log.Error("dispatch refused", "kind", models.KindConfig, "error", d.keyErr)
		return models.DispatchResult{Kind: models.KindConfig, Err: d.keyErr}
	}

	primary := d.registry.Resolve(req.Model, req.Task, req.Premium)
	candidates := d.registry.Candidates(primary, req.Task, req.Premium)
	key := cache.MakeKey(req.System+"\n\n"+req.Prompt, candidates, req.Premium, req.Task)

	if d.cache != nil {
		if e, ok := d.cache.Get(key); ok {
			log.Debug("cache hit", "model", e.Model)
			return models.DispatchResult{
				OK:      true,
				Text:    e.Response,
				Model:   e.Model,
				Cached:  true,
				Latency: d.now().Sub(start),
			}
		}
	}

	var last Outcome
	attempts := 0
	for i, model := range candidates {
		out, n := d.tryModel(ctx, log.With("model", model), req, model)
		attempts += n

		if out.Kind == models.KindNone {
			if d.cache != nil {
				if err := d.cache.Put(key, out.Text, model); err != nil {
					log.Warn("cache put failed", "error", err)
				}
			}
			return models.DispatchResult{
				OK:       true,
				Text:     out.Text,
				Model:    model,
				Latency:  d.now().Sub(start),
				Quality:  out.Quality,
				Attempts: attempts,
			}
		}

		last = out
		if out.Kind == models.KindCanceled {
			break
		}
		if i == 0 && i+1 < len(candidates) {
			d.metrics.RecordFallback(models.FallbackEvent{
				Primary:  primary,
				Fallback: candidates[i+1],
				Task:     req.Task,
				Reason:   ReasonPrimaryFailed,
			})
			log.Info("falling back", "primary", primary, "next", candidates[i+1], "kind", out.Kind)
		}
	}

	err := fmt.Errorf("%w: last failure %s: %v", ErrExhausted, last.Kind, last.Err)
	if last.Kind == models.KindCanceled {
		err = last.Err
	}
	log.Error("dispatch failed", "attempts", attempts, "kind", last.Kind, "error", last.Err)
	return models.DispatchResult{
		Kind:     last.Kind,
		Err:      err,
		Attempts: attempts,
		Latency:  d.now().Sub(start),
	}
}

// tryModel makes up to maxRetries attempts against one model. It returns
// the final outcome and the number of attempts made.
func (d *Dispatcher) tryModel(ctx context.Context, log *slog.Logger, req Request, model string) (Outcome, int) {
	desc, _ := d.registry.Lookup(model)
	body := buildRequest(req, desc)

	var out Outcome
	for n := 1; n <= d.maxRetries; n++ {
		started := d.now()
		out = d.attempt(ctx, body)
		sample := metrics.Sample{
			Model:     model,
			Task:      req.Task,
			Latency:   d.now().Sub(started),
			Success:   out.Kind == models.KindNone,
			ErrorKind: out.Kind,
		}
		if sample.Success {
			out.Quality = quality.Score(out.Text, req.Task)
			sample.Quality = out.Quality
		}
		d.metrics.Record(sample)

		if sample.Success {
			return out, n
		}
		log.Warn("attempt failed", "attempt", n, "kind", out.Kind, "status", out.Status, "error", out.Err)

		if !out.Kind.RetrySameModel() || n == d.maxRetries {
			return out, n
		}
		if err := d.sleep(ctx, d.backoff<<(n-1)); err != nil {
			return Outcome{Kind: models.KindCanceled, Err: err}, n
		}
	}
	return out, d.maxRetries
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
