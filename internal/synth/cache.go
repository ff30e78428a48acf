package synth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
	"github.com/maia-posternack/anadol-counterfactual/internal/latent"
	"github.com/maia-posternack/anadol-counterfactual/internal/telemetry"
)

// Mode selects the generation strategy.
type Mode string

const (
	// ModeLatentOnly always produces the cheap local visualization and never
	// consults the external service. The result is cheap enough to recompute,
	// so it is not cached.
	ModeLatentOnly Mode = "latent-only"

	// ModeAIPreferred consults the cache first and calls the external
	// image-synthesis service on a miss.
	ModeAIPreferred Mode = "ai-preferred"
)

// ParseMode validates a mode name.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(name); m {
	case ModeLatentOnly, ModeAIPreferred:
		return m, nil
	default:
		return "", errortypes.InvalidArgumentError(
			fmt.Errorf("unrecognized mode %q", name),
			"invalid generation mode")
	}
}

// Artifact is the result of a generation request: either a canonical image
// reference or a local latent visualization, never both. A fallback
// visualization is a usable artifact, distinguishable from both an image
// reference and a generation failure.
type Artifact struct {
	ImageURL string                `json:"image_url,omitempty"`
	Latent   *latent.Visualization `json:"latent_data,omitempty"`
}

// Cache memoizes successful external generations per artwork identifier.
// Unbounded, no eviction, process lifetime only. It is the only mutable
// shared state on the serving path; the mutex guards the map, and is never
// held across an external call. Concurrent misses for the same identifier
// may both call the service; the last writer wins, which is acceptable.
type Cache struct {
	index   *latent.Index
	synth   Synthesizer
	metrics *telemetry.MetricsCollector
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	entries map[latent.ID]Output
}

// NewCache creates an empty generation cache over the given index and
// synthesizer.
func NewCache(index *latent.Index, synth Synthesizer, metrics *telemetry.MetricsCollector, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}
	return &Cache{
		index:   index,
		synth:   synth,
		metrics: metrics,
		logger:  logger,
		timeout: DefaultSynthTimeout,
		entries: make(map[latent.ID]Output),
	}
}

// Len returns the number of cached references.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Put stores a raw output for an identifier, replacing any existing entry.
// Exposed so pre-resolved references can be seeded.
func (c *Cache) Put(id latent.ID, out Output) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = out
	c.metrics.SetGauge(telemetry.MetricCacheSize, float64(len(c.entries)))
}

// GetOrGenerate returns the artifact for id under the given mode.
//
// In ai-preferred mode a cache hit that holds a rich handle is coerced to its
// canonical string form and the entry overwritten, so later reads see the
// normalized value. On a miss the external service is called once; a
// quota-exceeded failure falls back to the local visualization without
// caching, so a later call retries the external path. Any other failure is
// returned to the caller and nothing is cached.
func (c *Cache) GetOrGenerate(ctx context.Context, id latent.ID, mode Mode) (Artifact, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return Artifact{}, err
	}

	if mode == ModeLatentOnly {
		viz, err := c.index.Visualization(id)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Latent: viz}, nil
	}

	details, err := c.index.Details(id)
	if err != nil {
		return Artifact{}, err
	}

	c.mu.Lock()
	if out, ok := c.entries[id]; ok {
		ref, cerr := CanonicalReference(out)
		if cerr == nil {
			// Normalize-on-read: store the coerced form.
			c.entries[id] = Output{URL: ref}
			c.mu.Unlock()
			c.metrics.IncrementCounter(telemetry.MetricCacheHits, 1)
			return Artifact{ImageURL: ref}, nil
		}
		// An entry that cannot be coerced is useless; drop it and regenerate.
		delete(c.entries, id)
	}
	c.mu.Unlock()
	c.metrics.IncrementCounter(telemetry.MetricCacheMisses, 1)

	prompt := BuildPrompt(details)
	c.logger.Debug("generating artwork image", "index", int(id), "prompt_len", len(prompt))

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	c.metrics.IncrementCounter(telemetry.MetricSynthCalls, 1)
	out, err := c.synth.GenerateImage(callCtx, prompt)
	c.metrics.RecordTimer(telemetry.MetricSynthDuration, time.Since(start))

	if err != nil {
		c.metrics.IncrementCounter(telemetry.MetricSynthFailure, 1)
		if errortypes.IsQuota(err) {
			// Fall back to the local visualization and leave the cache alone
			// so the next call retries the external service.
			c.metrics.IncrementCounter(telemetry.MetricSynthQuotaFallbacks, 1)
			c.logger.Info("synthesis quota exhausted, falling back to latent visualization", "index", int(id))
			viz, verr := c.index.Visualization(id)
			if verr != nil {
				return Artifact{}, verr
			}
			return Artifact{Latent: viz}, nil
		}
		return Artifact{}, err
	}

	ref, err := CanonicalReference(out)
	if err != nil {
		c.metrics.IncrementCounter(telemetry.MetricSynthFailure, 1)
		return Artifact{}, err
	}
	c.metrics.IncrementCounter(telemetry.MetricSynthSuccess, 1)

	c.mu.Lock()
	c.entries[id] = Output{URL: ref}
	c.metrics.SetGauge(telemetry.MetricCacheSize, float64(len(c.entries)))
	c.mu.Unlock()

	c.logger.Info("generated artwork image", "index", int(id), "url", ref)
	return Artifact{ImageURL: ref}, nil
}
