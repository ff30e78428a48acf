package latent

import (
	"fmt"
	"sort"

	"github.com/maia-posternack/anadol-counterfactual/internal/collection"
	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
	"github.com/maia-posternack/anadol-counterfactual/internal/vector"
)

// Facet selects which dimension constrains a neighbor search.
type Facet string

// Recognized facets. Similar applies no filter; the others require equality
// of the resolved facet value between query and candidate.
const (
	FacetSimilar     Facet = "similar"
	FacetNationality Facet = "nationality"
	FacetMedium      Facet = "medium"
	FacetDepartment  Facet = "department"
	FacetGender      Facet = "gender"
)

// ParseFacet validates a facet name. Unrecognized names are an invalid
// argument, not a silent fallback to similar.
func ParseFacet(name string) (Facet, error) {
	switch f := Facet(name); f {
	case FacetSimilar, FacetNationality, FacetMedium, FacetDepartment, FacetGender:
		return f, nil
	default:
		return "", errortypes.InvalidArgumentError(
			fmt.Errorf("unrecognized facet %q", name),
			"invalid facet")
	}
}

// Neighbor is one ranked search result.
type Neighbor struct {
	ID    ID      `json:"index"`
	Score float64 `json:"similarity"`
}

// facetValue resolves a record's value for a facet. The second return is
// false when the value is absent or unresolvable; filtering treats that as a
// non-match on either side, never as a wildcard.
func (ix *Index) facetValue(r collection.Record, facet Facet) (string, bool) {
	switch facet {
	case FacetMedium:
		return r.Medium, r.Medium != ""
	case FacetDepartment:
		return r.Department, r.Department != ""
	case FacetNationality:
		creator, ok := ix.CreatorFor(r)
		if !ok {
			return "", false
		}
		return creator.Nationality, creator.Nationality != ""
	case FacetGender:
		creator, ok := ix.CreatorFor(r)
		if !ok {
			return "", false
		}
		return creator.Gender, creator.Gender != ""
	default:
		return "", false
	}
}

// Neighbors returns up to k records nearest to id in the reduced space,
// optionally constrained to candidates sharing the query's facet value. The
// query record is always excluded. Results are ordered by descending cosine
// similarity, ties broken by ascending identifier. Fewer than k survivors is
// not an error.
//
// This is a full scan over all candidates; the space is small enough that
// O(n) per query is the baseline.
func (ix *Index) Neighbors(id ID, facet Facet, k int) ([]Neighbor, error) {
	if err := ix.checkID(id); err != nil {
		return nil, err
	}
	if _, err := ParseFacet(string(facet)); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, errortypes.InvalidArgumentError(
			fmt.Errorf("k must be positive, got %d", k),
			"invalid neighbor count")
	}

	queryRecord := ix.space.Records[id]
	queryEmbedding := ix.space.Reduced[id]

	var queryValue string
	if facet != FacetSimilar {
		v, ok := ix.facetValue(queryRecord, facet)
		if !ok {
			// The query itself has no resolvable value for this facet, so no
			// candidate can match it.
			return []Neighbor{}, nil
		}
		queryValue = v
	}

	candidates := make([]Neighbor, 0, ix.Count()-1)
	for i := 0; i < ix.Count(); i++ {
		cid := ID(i)
		if cid == id {
			continue
		}

		if facet != FacetSimilar {
			v, ok := ix.facetValue(ix.space.Records[i], facet)
			if !ok || v != queryValue {
				continue
			}
		}

		score, err := vector.CosineSimilarity(queryEmbedding, ix.space.Reduced[i])
		if err != nil {
			// A degenerate zero vector cannot be ranked; skip it.
			continue
		}
		candidates = append(candidates, Neighbor{ID: cid, Score: score})
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].Score != candidates[b].Score {
			return candidates[a].Score > candidates[b].Score
		}
		return candidates[a].ID < candidates[b].ID
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k], nil
}
