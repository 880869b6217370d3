// Package metrics keeps bounded, in-process performance windows per model.
package metrics

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cvforge/cvforge/pkg/models"
)

// DefaultMaxSamples bounds each rolling collection.
const DefaultMaxSamples = 1000

// Sample is one dispatch attempt against one model. A zero Quality means no
// score was computed.
type Sample struct {
	Model     string
	Task      models.TaskType
	Latency   time.Duration
	Success   bool
	Quality   float64
	ErrorKind models.ErrorKind
	At        time.Time
}

type timed[T any] struct {
	at time.Time
	v  T
}

type window struct {
	latencies *ring[timed[time.Duration]]
	outcomes  *ring[timed[bool]]
	quality   *ring[timed[float64]]
	usage     int64
	errors    map[models.ErrorKind]int64
}

// Recorder holds a window per model plus a capped fallback event list. It
// is safe for concurrent use.
type Recorder struct {
	mu           sync.Mutex
	windows      map[string]*window
	fallbacks    []models.FallbackEvent
	maxSamples   int
	maxFallbacks int
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMaxSamples sets the per-model rolling window size.
func WithMaxSamples(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxSamples = n
		}
	}
}

// WithMaxFallbacks caps the fallback event list.
func WithMaxFallbacks(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxFallbacks = n
		}
	}
}

// WithClock overrides the time source used for defaults and windows.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithLogger sets the logger used for swallowed recording errors.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder creates an empty Recorder.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		windows:      make(map[string]*window),
		maxSamples:   DefaultMaxSamples,
		maxFallbacks: DefaultMaxSamples,
		now:          time.Now,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Recorder) window(model string) *window {
	w, ok := r.windows[model]
	if !ok {
		w = &window{
			latencies: newRing[timed[time.Duration]](r.maxSamples),
			outcomes:  newRing[timed[bool]](r.maxSamples),
			quality:   newRing[timed[float64]](r.maxSamples),
			errors:    make(map[models.ErrorKind]int64),
		}
		r.windows[model] = w
	}
	return w
}

// Record appends one attempt to the model's window. It never fails the
// caller; a panic while recording is logged and swallowed.
func (r *Recorder) Record(s Sample) {
	defer r.swallow("record")
	if s.At.IsZero() {
		s.At = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.window(s.Model)
	w.usage++
	w.latencies.push(timed[time.Duration]{s.At, s.Latency})
	w.outcomes.push(timed[bool]{s.At, s.Success})
	if s.Quality > 0 {
		w.quality.push(timed[float64]{s.At, s.Quality})
	}
	if !s.Success && s.ErrorKind != models.KindNone {
		w.errors[s.ErrorKind]++
	}
}

// RecordFallback appends a fallback event, dropping the oldest beyond the cap.
func (r *Recorder) RecordFallback(e models.FallbackEvent) {
	defer r.swallow("record fallback")
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.fallbacks = append(r.fallbacks, e)
	if over := len(r.fallbacks) - r.maxFallbacks; over > 0 {
		r.fallbacks = slices.Delete(r.fallbacks, 0, over)
	}
}

func (r *Recorder) swallow(op string) {
	if v := recover(); v != nil {
		r.logger.Error("metrics recording failed", "op", op, "panic", v)
	}
}

// Summarize aggregates samples for model, or all models when model is empty.
// A non-positive window includes every retained sample.
func (r *Recorder) Summarize(model string, window time.Duration) models.ModelStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var since time.Time
	if window > 0 {
		since = r.now().Add(-window)
	}

	stats := models.ModelStats{Model: model}
	var latencySum time.Duration
	var latencyN, okN, outcomeN, qualityN int
	var qualitySum float64

	for id, w := range r.windows {
		if model != "" && id != model {
			continue
		}
		stats.Usage += w.usage
		for _, v := range w.latencies.values() {
			if v.at.Before(since) {
				continue
			}
			latencySum += v.v
			latencyN++
		}
		for _, v := range w.outcomes.values() {
			if v.at.Before(since) {
				continue
			}
			outcomeN++
			if v.v {
				okN++
			}
		}
		for _, v := range w.quality.values() {
			if v.at.Before(since) {
				continue
			}
			qualitySum += v.v
			qualityN++
		}
	}

	stats.Samples = outcomeN
	if latencyN > 0 {
		stats.AvgLatency = latencySum / time.Duration(latencyN)
	}
	if outcomeN > 0 {
		stats.SuccessRate = float64(okN) / float64(outcomeN) * 100
	}
	if qualityN > 0 {
		stats.AvgQuality = qualitySum / float64(qualityN)
	}
	return stats
}

// SummarizeAll returns per-model stats sorted by model id.
func (r *Recorder) SummarizeAll(window time.Duration) []models.ModelStats {
	out := make([]models.ModelStats, 0, len(r.Models()))
	for _, id := range r.Models() {
		out = append(out, r.Summarize(id, window))
	}
	return out
}

// Models returns the ids with at least one recorded sample, sorted.
func (r *Recorder) Models() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.windows))
}

// Fallbacks returns a copy of the retained fallback events, oldest first.
func (r *Recorder) Fallbacks() []models.FallbackEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.fallbacks)
}

// ErrorCounts returns the error-kind counters for model.
func (r *Recorder) ErrorCounts(model string) map[models.ErrorKind]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[model]
	if !ok {
		return map[models.ErrorKind]int64{}
	}
	return maps.Clone(w.errors)
}

// Samples returns the number of retained latency samples for model.
func (r *Recorder) Samples(model string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[model]
	if !ok {
		return 0
	}
	return w.latencies.len()
}

// Latencies returns the retained latency samples for model, oldest first.
func (r *Recorder) Latencies(model string) []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[model]
	if !ok {
		return nil
	}
	vals := w.latencies.values()
	out := make([]time.Duration, len(vals))
	for i, v := range vals {
		out[i] = v.v
	}
	return out
}
