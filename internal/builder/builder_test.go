package builder

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/maia-posternack/anadol-counterfactual/internal/collection"
	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
	"github.com/maia-posternack/anadol-counterfactual/internal/latent"
	"github.com/maia-posternack/anadol-counterfactual/internal/vector"
)

func testRecords(n int) []collection.Record {
	records := make([]collection.Record, n)
	for i := range records {
		records[i] = collection.Record{
			Title:          fmt.Sprintf("Work %d", i),
			Artist:         fmt.Sprintf("Artist %d", i%5),
			ConstituentIDs: []int{i%5 + 1},
			Medium:         "Oil on canvas",
			Department:     "Paintings",
		}
	}
	return records
}

func testCreators() collection.CreatorTable {
	return collection.CreatorTable{
		1: {ConstituentID: 1, Nationality: "French", Gender: "male"},
		2: {ConstituentID: 2, Nationality: "French", Gender: "female"},
		3: {ConstituentID: 3, Nationality: "German", Gender: "male"},
		4: {ConstituentID: 4, Nationality: "American", Gender: "female"},
		5: {ConstituentID: 5},
	}
}

func TestBuild(t *testing.T) {
	records := testRecords(20)
	embedder := vector.NewMockEmbedder(32)

	space, err := Build(context.Background(), slog.Default(), records, testCreators(), embedder, Options{
		TargetDimensions: 8,
		BatchSize:        4,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(space.Records) != 20 {
		t.Errorf("records = %d, want 20", len(space.Records))
	}
	if len(space.Descriptions) != 20 || len(space.Full) != 20 || len(space.Reduced) != 20 {
		t.Errorf("parallel arrays misaligned: %d descriptions, %d full, %d reduced",
			len(space.Descriptions), len(space.Full), len(space.Reduced))
	}
	if len(space.Reduced[0]) != 8 {
		t.Errorf("reduced dimensionality = %d, want 8", len(space.Reduced[0]))
	}
	if space.Meta.Records != 20 || space.Meta.FullDimensions != 32 || space.Meta.ReducedDimensions != 8 {
		t.Errorf("metadata = %+v", space.Meta)
	}
	if space.Meta.ExplainedVariance <= 0 || space.Meta.ExplainedVariance > 1 {
		t.Errorf("ExplainedVariance = %v, want in (0, 1]", space.Meta.ExplainedVariance)
	}
	if space.Meta.Fingerprint == "" {
		t.Error("fingerprint is empty")
	}
	if err := space.Validate(); err != nil {
		t.Errorf("built space failed validation: %v", err)
	}
}

func TestBuildFiltersIneligible(t *testing.T) {
	records := append(testRecords(5),
		collection.Record{Title: "No artist"},
		collection.Record{Title: "Rejected", Artist: "A", CuratorApproved: "N"},
	)

	space, err := Build(context.Background(), slog.Default(), records, testCreators(),
		vector.NewMockEmbedder(16), Options{TargetDimensions: 4})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(space.Records) != 5 {
		t.Errorf("records = %d, want 5 after filtering", len(space.Records))
	}
	for _, r := range space.Records {
		if !r.Eligible() {
			t.Errorf("ineligible record survived: %+v", r)
		}
	}
}

func TestBuildNoEligibleRecords(t *testing.T) {
	records := []collection.Record{{Title: "Orphan"}}
	_, err := Build(context.Background(), slog.Default(), records, nil,
		vector.NewMockEmbedder(16), Options{})
	if !errortypes.IsBuildIntegrity(err) {
		t.Errorf("Build() error = %v, want build integrity error", err)
	}
}

func TestBuildDeterministicFingerprint(t *testing.T) {
	records := testRecords(10)
	opts := Options{TargetDimensions: 4}

	a, err := Build(context.Background(), slog.Default(), records, testCreators(), vector.NewMockEmbedder(16), opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	b, err := Build(context.Background(), slog.Default(), records, testCreators(), vector.NewMockEmbedder(16), opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if a.Meta.Fingerprint != b.Meta.Fingerprint {
		t.Errorf("fingerprints differ across identical builds: %q vs %q", a.Meta.Fingerprint, b.Meta.Fingerprint)
	}
}

func TestBuildStatistics(t *testing.T) {
	space, err := Build(context.Background(), slog.Default(), testRecords(20), testCreators(),
		vector.NewMockEmbedder(16), Options{TargetDimensions: 4})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if space.Stats.Total != 20 {
		t.Errorf("Stats.Total = %d, want 20", space.Stats.Total)
	}
	if space.Stats.Nationalities["French"] != 8 {
		t.Errorf("Nationalities[French] = %d, want 8", space.Stats.Nationalities["French"])
	}
	// Constituent 5 has no nationality recorded.
	if space.Stats.Nationalities[collection.Unknown] != 4 {
		t.Errorf("Nationalities[Unknown] = %d, want 4", space.Stats.Nationalities[collection.Unknown])
	}

	top := TopNationalities(space.Stats, 2)
	if len(top) != 2 || top[0] != "French" {
		t.Errorf("TopNationalities = %v, want French first", top)
	}
}

func TestSubset(t *testing.T) {
	space, err := Build(context.Background(), slog.Default(), testRecords(20), testCreators(),
		vector.NewMockEmbedder(16), Options{TargetDimensions: 4})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	sub, err := Subset(space, 7)
	if err != nil {
		t.Fatalf("Subset() error = %v", err)
	}
	if len(sub.Records) != 7 || len(sub.Descriptions) != 7 || len(sub.Reduced) != 7 || len(sub.Full) != 7 {
		t.Fatalf("subset arrays misaligned: %d/%d/%d/%d",
			len(sub.Records), len(sub.Descriptions), len(sub.Reduced), len(sub.Full))
	}
	if sub.Meta.Records != 7 {
		t.Errorf("Meta.Records = %d, want 7", sub.Meta.Records)
	}
	if err := sub.Validate(); err != nil {
		t.Errorf("subset failed validation: %v", err)
	}

	// Rows stay aligned with their source: each sampled record keeps the
	// description and embedding it had in the full space.
	byTitle := make(map[string]int, len(space.Records))
	for i, r := range space.Records {
		byTitle[r.Title] = i
	}
	for i, r := range sub.Records {
		src, ok := byTitle[r.Title]
		if !ok {
			t.Fatalf("subset record %q not in source", r.Title)
		}
		if sub.Descriptions[i] != space.Descriptions[src] {
			t.Errorf("description misaligned for %q", r.Title)
		}
		if sub.Reduced[i][0] != space.Reduced[src][0] {
			t.Errorf("reduced embedding misaligned for %q", r.Title)
		}
	}
}

func TestSubsetBounds(t *testing.T) {
	space, err := Build(context.Background(), slog.Default(), testRecords(5), testCreators(),
		vector.NewMockEmbedder(16), Options{TargetDimensions: 2})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, n := range []int{0, -1, 6} {
		if _, err := Subset(space, n); !errortypes.IsInvalidArgument(err) {
			t.Errorf("Subset(%d) error = %v, want invalid argument", n, err)
		}
	}

	full, err := Subset(space, 5)
	if err != nil {
		t.Fatalf("Subset(total) error = %v", err)
	}
	if len(full.Records) != 5 {
		t.Errorf("Subset(total) records = %d, want 5", len(full.Records))
	}
}

func TestSubsetDir(t *testing.T) {
	space, err := Build(context.Background(), slog.Default(), testRecords(10), testCreators(),
		vector.NewMockEmbedder(16), Options{TargetDimensions: 4})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	srcDir := t.TempDir()
	dstDir := t.TempDir() + "/subset"
	if err := space.Save(srcDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := SubsetDir(slog.Default(), srcDir, dstDir, 4); err != nil {
		t.Fatalf("SubsetDir() error = %v", err)
	}

	loaded, err := latent.Load(dstDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Records) != 4 {
		t.Errorf("subset dir records = %d, want 4", len(loaded.Records))
	}
}
