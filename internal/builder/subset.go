package builder

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
	"github.com/maia-posternack/anadol-counterfactual/internal/latent"
)

// Subset samples n aligned rows from a built space into a smaller space,
// preserving positional alignment between records, descriptions, and both
// embedding matrices. Used to fit deployment size limits. The sampled
// indices are sorted so relative order within the subset is stable.
func Subset(space *latent.Space, n int) (*latent.Space, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	total := len(space.Records)
	if n <= 0 || n > total {
		return nil, errortypes.InvalidArgumentError(
			fmt.Errorf("subset size %d outside (0, %d]", n, total),
			"invalid subset size")
	}

	perm := rand.Perm(total)[:n]
	sort.Ints(perm)

	subset := &latent.Space{
		Descriptions: make([]string, 0, n),
		Reduced:      make([][]float32, 0, n),
		Projection:   space.Projection,
	}
	for _, i := range perm {
		subset.Records = append(subset.Records, space.Records[i])
		subset.Descriptions = append(subset.Descriptions, space.Descriptions[i])
		subset.Reduced = append(subset.Reduced, space.Reduced[i])
		if space.Full != nil {
			subset.Full = append(subset.Full, space.Full[i])
		}
	}

	subset.Meta = space.Meta
	subset.Meta.Records = n
	subset.Meta.Note = fmt.Sprintf("subset of %d artworks from a space of %d", n, total)
	subset.Stats = space.Stats

	if err := subset.Validate(); err != nil {
		return nil, err
	}
	return subset, nil
}

// SubsetDir loads a space from srcDir, samples n rows, and saves the result
// to dstDir.
func SubsetDir(logger *slog.Logger, srcDir, dstDir string, n int) error {
	if logger == nil {
		logger = slog.Default()
	}

	space, err := latent.Load(srcDir)
	if err != nil {
		return err
	}
	logger.Info("loaded space for subsetting", "records", len(space.Records), "dir", srcDir)

	subset, err := Subset(space, n)
	if err != nil {
		return err
	}

	if err := subset.Save(dstDir); err != nil {
		return err
	}
	logger.Info("saved subset space", "records", n, "dir", dstDir)
	return nil
}
