package latent

import (
	"fmt"
	"math/rand/v2"

	"github.com/maia-posternack/anadol-counterfactual/internal/collection"
	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
)

// ID identifies one record in a built space. IDs are positional and stable
// for the lifetime of the space, but callers treat them as opaque: the
// mapping to array positions is this package's concern.
type ID int

// Index is the read-only in-memory view of a built space, plus the creator
// table resolved at load. Concurrent reads are safe: nothing here mutates
// after construction.
type Index struct {
	space    *Space
	creators collection.CreatorTable
}

// NewIndex validates the space and wraps it with a creator table.
func NewIndex(space *Space, creators collection.CreatorTable) (*Index, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if creators == nil {
		creators = collection.CreatorTable{}
	}
	return &Index{space: space, creators: creators}, nil
}

// Count returns the number of records in the space.
func (ix *Index) Count() int {
	return len(ix.space.Records)
}

// Dimension returns the dimensionality of reduced embeddings.
func (ix *Index) Dimension() int {
	return len(ix.space.Reduced[0])
}

// Meta returns the build metadata of the loaded space.
func (ix *Index) Meta() Metadata {
	return ix.space.Meta
}

func (ix *Index) checkID(id ID) error {
	if id < 0 || int(id) >= ix.Count() {
		return errortypes.OutOfRangeError(
			fmt.Errorf("index %d outside [0, %d)", id, ix.Count()),
			"invalid artwork index")
	}
	return nil
}

// RecordAt returns the record for id.
func (ix *Index) RecordAt(id ID) (collection.Record, error) {
	if err := ix.checkID(id); err != nil {
		return collection.Record{}, err
	}
	return ix.space.Records[id], nil
}

// EmbeddingAt returns the reduced embedding for id. Callers must not mutate
// the returned slice.
func (ix *Index) EmbeddingAt(id ID) ([]float32, error) {
	if err := ix.checkID(id); err != nil {
		return nil, err
	}
	return ix.space.Reduced[id], nil
}

// DescriptionAt returns the canonical description text for id.
func (ix *Index) DescriptionAt(id ID) (string, error) {
	if err := ix.checkID(id); err != nil {
		return "", err
	}
	return ix.space.Descriptions[id], nil
}

// CreatorFor resolves the primary creator of a record.
func (ix *Index) CreatorFor(r collection.Record) (collection.Creator, bool) {
	return r.PrimaryCreator(ix.creators)
}

// RandomID returns a uniformly chosen valid identifier.
func (ix *Index) RandomID() ID {
	return ID(rand.IntN(ix.Count()))
}

// Details is the display view of one record: every field present, absent
// values shown as Unknown.
type Details struct {
	Index          ID     `json:"index"`
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	Date           string `json:"date"`
	Medium         string `json:"medium"`
	Dimensions     string `json:"dimensions"`
	Classification string `json:"classification"`
	Department     string `json:"department"`
	DateAcquired   string `json:"date_acquired"`
	CreditLine     string `json:"credit_line"`
	Description    string `json:"description"`
	Nationality    string `json:"nationality"`
	Gender         string `json:"gender"`
	BirthYear      string `json:"birth_year"`
	DeathYear      string `json:"death_year"`
}

func orUnknown(s string) string {
	if s == "" {
		return collection.Unknown
	}
	return s
}

// Details assembles the display view for id.
func (ix *Index) Details(id ID) (Details, error) {
	if err := ix.checkID(id); err != nil {
		return Details{}, err
	}

	r := ix.space.Records[id]
	d := Details{
		Index:          id,
		Title:          orUnknown(r.Title),
		Artist:         orUnknown(r.Artist),
		Date:           orUnknown(r.Date),
		Medium:         orUnknown(r.Medium),
		Dimensions:     orUnknown(r.Dimensions),
		Classification: orUnknown(r.Classification),
		Department:     orUnknown(r.Department),
		DateAcquired:   orUnknown(r.DateAcquired),
		CreditLine:     orUnknown(r.CreditLine),
		Description:    ix.space.Descriptions[id],
		Nationality:    collection.Unknown,
		Gender:         collection.Unknown,
		BirthYear:      collection.Unknown,
		DeathYear:      collection.Unknown,
	}

	if creator, ok := ix.CreatorFor(r); ok {
		d.Nationality = orUnknown(creator.Nationality)
		d.Gender = orUnknown(creator.Gender)
		d.BirthYear = collection.YearString(creator.BeginDate)
		d.DeathYear = collection.YearString(creator.EndDate)
	}
	return d, nil
}

// Visualization is the cheap local rendering payload for one record: the raw
// reduced vector plus display fields, computed without any external call.
type Visualization struct {
	Type      string    `json:"type"`
	Embedding []float32 `json:"embedding"`
	Index     ID        `json:"index"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
}

// Visualization builds the local latent visualization for id. Pure and
// deterministic; always succeeds for a valid identifier.
func (ix *Index) Visualization(id ID) (*Visualization, error) {
	details, err := ix.Details(id)
	if err != nil {
		return nil, err
	}

	return &Visualization{
		Type:      "latent_data",
		Embedding: ix.space.Reduced[id],
		Index:     id,
		Title:     details.Title,
		Artist:    details.Artist,
	}, nil
}
