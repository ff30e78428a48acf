// Package counterfactual exposes the core query interface over a built
// latent space: artwork details, random entry points, dimension-constrained
// navigation, artifact generation, and path statistics.
package counterfactual

import (
	"context"
	"log/slog"
	"time"

	"github.com/maia-posternack/anadol-counterfactual/internal/collection"
	"github.com/maia-posternack/anadol-counterfactual/internal/config"
	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
	"github.com/maia-posternack/anadol-counterfactual/internal/latent"
	"github.com/maia-posternack/anadol-counterfactual/internal/synth"
	"github.com/maia-posternack/anadol-counterfactual/internal/telemetry"
)

// Config represents the configuration for the counterfactual service.
type Config = config.Config

// Explorer is the serving-side facade over a loaded latent space. The index
// is read-only after load, so Explorer methods are safe for concurrent use;
// the generation cache manages its own locking.
type Explorer struct {
	config  *config.Config
	index   *latent.Index
	cache   *synth.Cache
	metrics *telemetry.MetricsCollector
	logger  *slog.Logger
}

// ExplorerOptions defines the options for creating a new Explorer.
type ExplorerOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, defaults are used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.

	// Synthesizer overrides the image-synthesis adapter; nil selects the
	// Replicate-style adapter built from config.
	Synthesizer synth.Synthesizer
}

// NewExplorer loads the built space named by the configuration and wires the
// serving components. A space that fails integrity validation aborts startup.
func NewExplorer(opts ExplorerOptions) (*Explorer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error

	if opts.Config != nil {
		cfg = opts.Config
	} else if opts.ConfigPath != "" {
		logger.Info("Loading configuration", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			return nil, errortypes.ConfigError(err, "Failed to load configuration from path: "+opts.ConfigPath)
		}
	} else {
		cfg, err = config.LoadConfig()
		if err != nil {
			return nil, errortypes.ConfigError(err, "Failed to load configuration")
		}
	}

	logger.Info("Loading latent space", "dir", cfg.Space.Dir)
	space, err := latent.Load(cfg.Space.Dir)
	if err != nil {
		logger.Error("Failed to load latent space", "dir", cfg.Space.Dir, "error", err)
		return nil, err
	}

	logger.Info("Loading creators", "path", cfg.Data.ArtistsPath)
	creators, err := collection.LoadCreators(cfg.Data.ArtistsPath)
	if err != nil {
		logger.Error("Failed to load creators", "path", cfg.Data.ArtistsPath, "error", err)
		return nil, err
	}

	index, err := latent.NewIndex(space, creators)
	if err != nil {
		return nil, err
	}

	synthesizer := opts.Synthesizer
	if synthesizer == nil {
		synthesizer = synth.NewReplicateSynthesizer(synth.ReplicateOptions{
			APIKey:  cfg.Synth.ApiKey,
			Model:   cfg.Synth.Model,
			BaseURL: cfg.Synth.BaseURL,
		})
	}

	metrics := telemetry.NewMetricsCollector()
	cache := synth.NewCache(index, synthesizer, metrics, logger)

	logger.Info("Explorer initialized",
		"records", index.Count(),
		"dimensions", index.Dimension(),
		"synthesizer", synthesizer.Name())

	return &Explorer{
		config:  cfg,
		index:   index,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// NewExplorerFromIndex wires an Explorer directly from components. Intended
// for embedding the core into other processes and for tests.
func NewExplorerFromIndex(index *latent.Index, synthesizer synth.Synthesizer, logger *slog.Logger) *Explorer {
	if logger == nil {
		logger = slog.Default()
	}
	metrics := telemetry.NewMetricsCollector()
	return &Explorer{
		index:   index,
		cache:   synth.NewCache(index, synthesizer, metrics, logger),
		metrics: metrics,
		logger:  logger,
	}
}

// Count returns the number of artworks in the loaded space.
func (e *Explorer) Count() int {
	return e.index.Count()
}

// Meta returns the build metadata of the loaded space.
func (e *Explorer) Meta() latent.Metadata {
	return e.index.Meta()
}

// Metrics returns the explorer's metrics collector.
func (e *Explorer) Metrics() *telemetry.MetricsCollector {
	return e.metrics
}

// Details returns the display details for an artwork.
func (e *Explorer) Details(id latent.ID) (latent.Details, error) {
	return e.index.Details(id)
}

// RandomID returns a uniformly chosen valid artwork identifier.
func (e *Explorer) RandomID() latent.ID {
	return e.index.RandomID()
}

// NeighborDetails is one navigation result: full display details plus the
// similarity score.
type NeighborDetails struct {
	latent.Details
	Similarity float64 `json:"similarity"`
}

// Navigate finds up to k artworks nearest to the current one along a facet
// and resolves their display details.
func (e *Explorer) Navigate(id latent.ID, facetName string, k int) ([]NeighborDetails, error) {
	start := time.Now()
	e.metrics.IncrementCounter(telemetry.MetricNavigateRequests, 1)

	facet, err := latent.ParseFacet(facetName)
	if err != nil {
		return nil, err
	}

	neighbors, err := e.index.Neighbors(id, facet, k)
	if err != nil {
		return nil, err
	}

	results := make([]NeighborDetails, len(neighbors))
	for i, n := range neighbors {
		details, err := e.index.Details(n.ID)
		if err != nil {
			return nil, err
		}
		results[i] = NeighborDetails{Details: details, Similarity: n.Score}
	}

	e.metrics.RecordTimer(telemetry.MetricNavigateDuration, time.Since(start))
	return results, nil
}

// Generate produces the generation artifact for an artwork under the given
// mode. A quota-driven fallback returns a latent visualization, which the
// caller can tell apart from both an image reference and a failure.
func (e *Explorer) Generate(ctx context.Context, id latent.ID, mode string) (synth.Artifact, error) {
	m, err := synth.ParseMode(mode)
	if err != nil {
		return synth.Artifact{}, err
	}
	return e.cache.GetOrGenerate(ctx, id, m)
}

// PathStatistics summarizes a walked path: facet distributions with counts
// and percentages.
func (e *Explorer) PathStatistics(path []latent.ID) (*latent.PathStats, error) {
	return e.index.PathStatistics(path)
}
