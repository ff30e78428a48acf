package latent

import (
	"fmt"
	"strconv"

	"github.com/maia-posternack/anadol-counterfactual/internal/collection"
	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
)

// Bucket is one entry of a facet distribution.
type Bucket struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// PathStats summarizes a walk through the collection: counts and percentages
// per nationality, gender, department, and acquisition decade. Percentages
// are over the path length, so buckets within one facet sum to 100 when every
// step resolves.
type PathStats struct {
	Total              int               `json:"total_artworks"`
	Nationalities      map[string]Bucket `json:"nationalities"`
	Genders            map[string]Bucket `json:"genders"`
	Departments        map[string]Bucket `json:"departments"`
	AcquisitionDecades map[string]Bucket `json:"acquisition_decades"`
}

// acquisitionDecade parses the leading four digits of an acquisition date
// into a decade bucket. Malformed dates are silently skipped.
func acquisitionDecade(dateAcquired string) (string, bool) {
	if len(dateAcquired) < 4 {
		return "", false
	}
	year, err := strconv.Atoi(dateAcquired[:4])
	if err != nil {
		return "", false
	}
	return strconv.Itoa((year / 10) * 10), true
}

// PathStatistics computes the facet distribution summary for a sequence of
// visited identifiers. An empty path is invalid input. Out-of-range entries
// are skipped rather than failing the whole summary.
func (ix *Index) PathStatistics(path []ID) (*PathStats, error) {
	if len(path) == 0 {
		return nil, errortypes.InvalidArgumentError(
			fmt.Errorf("empty path"),
			"no path provided")
	}

	nationalities := make(map[string]int)
	genders := make(map[string]int)
	departments := make(map[string]int)
	decades := make(map[string]int)

	for _, id := range path {
		if id < 0 || int(id) >= ix.Count() {
			continue
		}
		r := ix.space.Records[id]

		if creator, ok := ix.CreatorFor(r); ok {
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

		dept := r.Department
		if dept == "" {
			dept = collection.Unknown
		}
		departments[dept]++

		if decade, ok := acquisitionDecade(r.DateAcquired); ok {
			decades[decade]++
		}
	}

	total := len(path)
	return &PathStats{
		Total:              total,
		Nationalities:      toBuckets(nationalities, total),
		Genders:            toBuckets(genders, total),
		Departments:        toBuckets(departments, total),
		AcquisitionDecades: toBuckets(decades, total),
	}, nil
}

func toBuckets(counts map[string]int, total int) map[string]Bucket {
	buckets := make(map[string]Bucket, len(counts))
	for k, c := range counts {
		buckets[k] = Bucket{
			Count:   c,
			Percent: float64(c) / float64(total) * 100,
		}
	}
	return buckets
}
