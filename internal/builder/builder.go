// Package builder drives the offline latent-space construction pipeline:
// filter, describe, embed, normalize, project, persist. Strictly sequential
// between steps, single-shot, and fatal on any missing input.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/maia-posternack/anadol-counterfactual/internal/collection"
	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
	"github.com/maia-posternack/anadol-counterfactual/internal/latent"
	"github.com/maia-posternack/anadol-counterfactual/internal/projection"
	"github.com/maia-posternack/anadol-counterfactual/internal/util"
	"github.com/maia-posternack/anadol-counterfactual/internal/vector"
)

// Options configures a build.
type Options struct {
	// TargetDimensions is the reduced dimensionality; zero selects the
	// projection default.
	TargetDimensions int

	// BatchSize is how many descriptions are embedded per call; zero selects
	// the embedder default.
	BatchSize int

	// Concurrency bounds how many embedding batches are in flight at once.
	Concurrency int
}

// Build runs the full pipeline over raw records and returns the space ready
// to persist. Records failing the minimal-metadata check never enter the
// space and never receive an identifier.
func Build(ctx context.Context, logger *slog.Logger, records []collection.Record, creators collection.CreatorTable, embedder vector.Embedder, opts Options) (*latent.Space, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("filtering records", "total", len(records))
	eligible := collection.FilterEligible(records)
	if len(eligible) == 0 {
		return nil, errortypes.BuildIntegrityError(nil, "no eligible records after filtering")
	}
	logger.Info("filtered records", "eligible", len(eligible), "excluded", len(records)-len(eligible))

	descriptions := make([]string, len(eligible))
	for i, r := range eligible {
		descriptions[i] = collection.Describe(r, creators)
	}
	logger.Info("created descriptions", "count", len(descriptions))

	full, err := embedAll(ctx, logger, embedder, descriptions, opts)
	if err != nil {
		return nil, err
	}

	for _, v := range full {
		vector.Normalize(v)
	}
	logger.Info("normalized embeddings", "dimensions", embedder.Dimensions())

	model, err := projection.Fit(full, opts.TargetDimensions)
	if err != nil {
		return nil, err
	}
	logger.Info("fitted projection",
		"output_dimensions", model.OutputDim,
		"explained_variance", fmt.Sprintf("%.2f%%", model.ExplainedVariance*100))

	reduced, err := model.TransformAll(full)
	if err != nil {
		return nil, errortypes.InternalError(err, "failed to apply projection")
	}

	space := &latent.Space{
		Records:      eligible,
		Descriptions: descriptions,
		Full:         full,
		Reduced:      reduced,
		Projection:   model,
		Meta: latent.Metadata{
			Records:           len(eligible),
			FullDimensions:    embedder.Dimensions(),
			ReducedDimensions: model.OutputDim,
			ExplainedVariance: model.ExplainedVariance,
			Embedder:          embedder.Name(),
			Fingerprint:       util.Fingerprint(descriptions),
		},
		Stats: computeStatistics(eligible, creators),
	}

	if err := space.Validate(); err != nil {
		return nil, err
	}
	return space, nil
}

// embedAll drives the embedding function over all descriptions in fixed-size
// batches. Batches may run concurrently but each result lands at its input
// position, so vector order matches input order exactly.
func embedAll(ctx context.Context, logger *slog.Logger, embedder vector.Embedder, descriptions []string, opts Options) ([][]float32, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = vector.DefaultBatchSize
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	full := make([][]float32, len(descriptions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for start := 0; start < len(descriptions); start += batchSize {
		end := start + batchSize
		if end > len(descriptions) {
			end = len(descriptions)
		}
		start, end := start, end

		g.Go(func() error {
			batch, err := embedder.EmbedBatch(gctx, descriptions[start:end])
			if err != nil {
				return errortypes.ExternalError(err, "embedding batch failed").WithField("offset", start)
			}
			if len(batch) != end-start {
				return errortypes.ExternalError(
					fmt.Errorf("got %d vectors for %d texts", len(batch), end-start),
					"embedding count mismatch").WithField("offset", start)
			}
			copy(full[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("created embeddings", "count", len(full), "batch_size", batchSize)
	return full, nil
}

// computeStatistics derives the facet distributions persisted beside the
// space: nationality and gender counts over the primary creators.
func computeStatistics(records []collection.Record, creators collection.CreatorTable) latent.Statistics {
	nationalities := make(map[string]int)
	genders := make(map[string]int)

	for _, r := range records {
		creator, ok := r.PrimaryCreator(creators)
		if !ok {
			continue
		}

		nat := creator.Nationality
		if nat == "" {
			nat = collection.Unknown
		}
		nationalities[nat]++

		gender := creator.Gender
		if gender == "" {
			gender = collection.Unknown
		}
		genders[gender]++
	}

	return latent.Statistics{
		Total:         len(records),
		Nationalities: nationalities,
		Genders:       genders,
	}
}

// TopNationalities returns the n most frequent nationalities in the build
// statistics, ordered by descending count with alphabetical tie-break.
func TopNationalities(stats latent.Statistics, n int) []string {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(stats.Nationalities))
	for name, count := range stats.Nationalities {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	if n > len(entries) {
		n = len(entries)
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = entries[i].name
	}
	return names
}
