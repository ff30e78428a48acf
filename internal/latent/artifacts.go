// Package latent holds the built latent space: artifact persistence, the
// read-only in-memory index, dimension-constrained neighbor search, and path
// statistics.
package latent

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/maia-posternack/anadol-counterfactual/internal/collection"
	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
	"github.com/maia-posternack/anadol-counterfactual/internal/projection"
	"github.com/maia-posternack/anadol-counterfactual/internal/vector"
)

// Artifact file names inside a space directory.
const (
	FullMatrixFile    = "embeddings_full.f32"
	ReducedMatrixFile = "embeddings_reduced.f32"
	RecordsFile       = "artworks.json"
	DescriptionsFile  = "descriptions.json"
	MetadataFile      = "metadata.json"
	ProjectionFile    = "projection.json"
	StatisticsFile    = "statistics.json"
)

// Metadata summarizes a built space.
type Metadata struct {
	Records           int     `json:"n_artworks"`
	FullDimensions    int     `json:"embedding_dim_full"`
	ReducedDimensions int     `json:"embedding_dim_reduced"`
	ExplainedVariance float64 `json:"pca_variance_explained"`
	Embedder          string  `json:"embedder"`
	Fingerprint       string  `json:"fingerprint"`
	Note              string  `json:"note,omitempty"`
}

// Statistics holds the facet distributions computed at build time.
type Statistics struct {
	Total         int            `json:"total_artworks"`
	Nationalities map[string]int `json:"nationalities"`
	Genders       map[string]int `json:"genders"`
}

// Space is the full artifact set of one build. Full embeddings and the
// projection model are build artifacts only; serving needs just the reduced
// matrix, records, and descriptions.
type Space struct {
	Records      []collection.Record
	Descriptions []string
	Full         [][]float32
	Reduced      [][]float32
	Projection   *projection.Model
	Meta         Metadata
	Stats        Statistics
}

// Validate checks that every parallel array in the space has matching length
// and that reduced vectors share one dimensionality.
func (s *Space) Validate() error {
	n := len(s.Records)
	if n == 0 {
		return errortypes.BuildIntegrityError(nil, "space contains no records")
	}
	if len(s.Descriptions) != n {
		return errortypes.BuildIntegrityError(
			fmt.Errorf("%d descriptions for %d records", len(s.Descriptions), n),
			"description count mismatch")
	}
	if len(s.Reduced) != n {
		return errortypes.BuildIntegrityError(
			fmt.Errorf("%d reduced embeddings for %d records", len(s.Reduced), n),
			"reduced embedding count mismatch")
	}
	if s.Full != nil && len(s.Full) != n {
		return errortypes.BuildIntegrityError(
			fmt.Errorf("%d full embeddings for %d records", len(s.Full), n),
			"full embedding count mismatch")
	}

	dim := len(s.Reduced[0])
	for i, v := range s.Reduced {
		if len(v) != dim {
			return errortypes.BuildIntegrityError(
				fmt.Errorf("reduced embedding %d has %d dimensions, expected %d", i, len(v), dim),
				"reduced embedding dimension mismatch")
		}
	}
	if s.Meta.ReducedDimensions != 0 && s.Meta.ReducedDimensions != dim {
		return errortypes.BuildIntegrityError(
			fmt.Errorf("metadata declares %d reduced dimensions, matrix has %d", s.Meta.ReducedDimensions, dim),
			"metadata dimension mismatch")
	}
	if s.Meta.Records != 0 && s.Meta.Records != n {
		return errortypes.BuildIntegrityError(
			fmt.Errorf("metadata declares %d records, space has %d", s.Meta.Records, n),
			"metadata record count mismatch")
	}
	return nil
}

// Save writes every artifact of the space to dir, creating it if needed.
func (s *Space) Save(dir string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create space directory: %w", err)
	}

	if s.Full != nil {
		if err := vector.SaveMatrixFile(filepath.Join(dir, FullMatrixFile), s.Full); err != nil {
			return fmt.Errorf("failed to save full embeddings: %w", err)
		}
	}
	if err := vector.SaveMatrixFile(filepath.Join(dir, ReducedMatrixFile), s.Reduced); err != nil {
		return fmt.Errorf("failed to save reduced embeddings: %w", err)
	}

	if err := saveJSON(filepath.Join(dir, RecordsFile), s.Records); err != nil {
		return err
	}
	if err := saveJSON(filepath.Join(dir, DescriptionsFile), s.Descriptions); err != nil {
		return err
	}
	if err := saveJSON(filepath.Join(dir, MetadataFile), s.Meta); err != nil {
		return err
	}
	if err := saveJSON(filepath.Join(dir, StatisticsFile), s.Stats); err != nil {
		return err
	}

	if s.Projection != nil {
		if err := s.Projection.SaveFile(filepath.Join(dir, ProjectionFile)); err != nil {
			return fmt.Errorf("failed to save projection model: %w", err)
		}
	}
	return nil
}

// Load reads a space back from dir and validates it. Full embeddings and the
// projection model are optional at serve time; everything else is required
// and a missing or mismatched artifact is fatal.
func Load(dir string) (*Space, error) {
	space := &Space{}

	reduced, err := vector.LoadMatrixFile(filepath.Join(dir, ReducedMatrixFile))
	if err != nil {
		return nil, errortypes.BuildIntegrityError(err, "failed to load reduced embeddings").WithField("dir", dir)
	}
	space.Reduced = reduced

	if err := loadJSON(filepath.Join(dir, RecordsFile), &space.Records); err != nil {
		return nil, errortypes.BuildIntegrityError(err, "failed to load records").WithField("dir", dir)
	}
	if err := loadJSON(filepath.Join(dir, DescriptionsFile), &space.Descriptions); err != nil {
		return nil, errortypes.BuildIntegrityError(err, "failed to load descriptions").WithField("dir", dir)
	}
	if err := loadJSON(filepath.Join(dir, MetadataFile), &space.Meta); err != nil {
		return nil, errortypes.BuildIntegrityError(err, "failed to load metadata").WithField("dir", dir)
	}

	// Statistics are informational; a space without them still serves.
	if _, err := os.Stat(filepath.Join(dir, StatisticsFile)); err == nil {
		if err := loadJSON(filepath.Join(dir, StatisticsFile), &space.Stats); err != nil {
			return nil, errortypes.BuildIntegrityError(err, "failed to load statistics").WithField("dir", dir)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, FullMatrixFile)); err == nil {
		full, err := vector.LoadMatrixFile(filepath.Join(dir, FullMatrixFile))
		if err != nil {
			return nil, errortypes.BuildIntegrityError(err, "failed to load full embeddings").WithField("dir", dir)
		}
		space.Full = full
	}
	if _, err := os.Stat(filepath.Join(dir, ProjectionFile)); err == nil {
		model, err := projection.LoadFile(filepath.Join(dir, ProjectionFile))
		if err != nil {
			return nil, errortypes.BuildIntegrityError(err, "failed to load projection model").WithField("dir", dir)
		}
		space.Projection = model
	}

	if err := space.Validate(); err != nil {
		return nil, err
	}
	return space, nil
}

func saveJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
