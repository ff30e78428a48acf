package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maia-posternack/anadol-counterfactual/internal/builder"
	"github.com/maia-posternack/anadol-counterfactual/internal/collection"
	"github.com/maia-posternack/anadol-counterfactual/internal/config"
	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
	"github.com/maia-posternack/anadol-counterfactual/internal/vector"
)

func newBuildCmd() *cobra.Command {
	var (
		artworksPath string
		artistsPath  string
		outDir       string
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the latent space from raw collection files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if artworksPath != "" {
				cfg.Data.ArtworksPath = artworksPath
			}
			if artistsPath != "" {
				cfg.Data.ArtistsPath = artistsPath
			}
			if outDir != "" {
				cfg.Space.Dir = outDir
			}
			log := newLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("Loading collection",
				"artworks", cfg.Data.ArtworksPath,
				"artists", cfg.Data.ArtistsPath)
			records, err := collection.LoadRecords(cfg.Data.ArtworksPath)
			if err != nil {
				return err
			}
			creators, err := collection.LoadCreators(cfg.Data.ArtistsPath)
			if err != nil {
				return err
			}

			embedder, err := newEmbedder(cfg)
			if err != nil {
				return err
			}
			log.Info("Embedding function selected", "embedder", embedder.Name())

			space, err := builder.Build(ctx, log, records, creators, embedder, builder.Options{
				TargetDimensions: cfg.Projection.Dimensions,
				BatchSize:        cfg.Embedder.BatchSize,
				Concurrency:      concurrency,
			})
			if err != nil {
				return err
			}

			if err := space.Save(cfg.Space.Dir); err != nil {
				return err
			}

			log.Info("Latent space written",
				"dir", cfg.Space.Dir,
				"records", space.Meta.Records,
				"full_dimensions", space.Meta.FullDimensions,
				"reduced_dimensions", space.Meta.ReducedDimensions,
				"variance_explained", space.Meta.ExplainedVariance)
			for _, nat := range builder.TopNationalities(space.Stats, 5) {
				log.Info("Top nationality", "nationality", nat, "count", space.Stats.Nationalities[nat])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&artworksPath, "artworks", "", "path to Artworks.json (overrides config)")
	cmd.Flags().StringVar(&artistsPath, "artists", "", "path to Artists.json (overrides config)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory for artifacts (overrides config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "embedding batches in flight (0 = default)")
	return cmd
}

// newEmbedder picks the embedding provider named by config.
func newEmbedder(cfg *config.Config) (vector.Embedder, error) {
	switch cfg.Embedder.Provider {
	case "", "mock":
		return vector.NewMockEmbedder(cfg.Embedder.Dimensions), nil
	case "openai":
		if cfg.Embedder.ApiKey == "" {
			return nil, errortypes.ConfigError(
				fmt.Errorf("embedder provider %q requires an API key", cfg.Embedder.Provider),
				"Missing embedder API key")
		}
		return vector.NewOpenAIEmbedder(vector.OpenAIOptions{
			APIKey:     cfg.Embedder.ApiKey,
			Model:      cfg.Embedder.Model,
			Dimensions: cfg.Embedder.Dimensions,
		}), nil
	default:
		return nil, errortypes.ConfigError(
			fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider),
			"Unknown embedder provider")
	}
}
