package synth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/maia-posternack/anadol-counterfactual/internal/collection"
	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
	"github.com/maia-posternack/anadol-counterfactual/internal/latent"
	"github.com/maia-posternack/anadol-counterfactual/internal/telemetry"
)

// fakeSynthesizer counts calls and plays back a scripted sequence of results.
type fakeSynthesizer struct {
	calls   int
	outputs []Output
	errs    []error
}

func (f *fakeSynthesizer) GenerateImage(ctx context.Context, prompt string) (Output, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return Output{}, f.errs[i]
	}
	if i < len(f.outputs) {
		return f.outputs[i], nil
	}
	return Output{URL: fmt.Sprintf("https://img.example/%d.jpg", i)}, nil
}

func (f *fakeSynthesizer) Name() string { return "fake" }

func cacheIndex(t *testing.T) *latent.Index {
	t.Helper()
	space := &latent.Space{
		Records: []collection.Record{
			{Title: "One", Artist: "A", Medium: "Oil on canvas"},
			{Title: "Two", Artist: "B"},
		},
		Descriptions: []string{"d0", "d1"},
		Reduced:      [][]float32{{1, 0}, {0, 1}},
	}
	ix, err := latent.NewIndex(space, nil)
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	return ix
}

func TestGetOrGenerateLatentOnly(t *testing.T) {
	fake := &fakeSynthesizer{}
	cache := NewCache(cacheIndex(t), fake, nil, nil)

	for i := 0; i < 3; i++ {
		artifact, err := cache.GetOrGenerate(context.Background(), 0, ModeLatentOnly)
		if err != nil {
			t.Fatalf("GetOrGenerate() error = %v", err)
		}
		if artifact.Latent == nil || artifact.ImageURL != "" {
			t.Fatalf("latent-only artifact = %+v, want latent payload only", artifact)
		}
		if artifact.Latent.Title != "One" {
			t.Errorf("visualization title = %q, want One", artifact.Latent.Title)
		}
	}

	if fake.calls != 0 {
		t.Errorf("latent-only mode made %d external calls, want 0", fake.calls)
	}
	if cache.Len() != 0 {
		t.Errorf("latent-only results were cached: len = %d", cache.Len())
	}
}

func TestGetOrGenerateMemoizes(t *testing.T) {
	fake := &fakeSynthesizer{outputs: []Output{{URL: "https://img.example/one.jpg"}}}
	metrics := telemetry.NewMetricsCollector()
	cache := NewCache(cacheIndex(t), fake, metrics, nil)

	first, err := cache.GetOrGenerate(context.Background(), 0, ModeAIPreferred)
	if err != nil {
		t.Fatalf("GetOrGenerate() error = %v", err)
	}
	if first.ImageURL != "https://img.example/one.jpg" {
		t.Fatalf("ImageURL = %q", first.ImageURL)
	}

	second, err := cache.GetOrGenerate(context.Background(), 0, ModeAIPreferred)
	if err != nil {
		t.Fatalf("GetOrGenerate() second call error = %v", err)
	}
	if second.ImageURL != first.ImageURL {
		t.Errorf("second ImageURL = %q, want %q", second.ImageURL, first.ImageURL)
	}
	if fake.calls != 1 {
		t.Errorf("external calls = %d, want 1 (second read should hit cache)", fake.calls)
	}
	if metrics.GetCounter(telemetry.MetricCacheHits) != 1 {
		t.Errorf("cache hits = %d, want 1", metrics.GetCounter(telemetry.MetricCacheHits))
	}
	if cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", cache.Len())
	}
}

func TestGetOrGenerateQuotaFallback(t *testing.T) {
	quotaErr := errortypes.QuotaError(errors.New("insufficient credit"), "quota exhausted")
	fake := &fakeSynthesizer{
		errs:    []error{quotaErr, nil},
		outputs: []Output{{}, {URL: "https://img.example/recovered.jpg"}},
	}
	metrics := telemetry.NewMetricsCollector()
	cache := NewCache(cacheIndex(t), fake, metrics, nil)

	artifact, err := cache.GetOrGenerate(context.Background(), 0, ModeAIPreferred)
	if err != nil {
		t.Fatalf("quota failure should fall back, got error %v", err)
	}
	if artifact.Latent == nil || artifact.ImageURL != "" {
		t.Fatalf("fallback artifact = %+v, want latent payload", artifact)
	}
	if cache.Len() != 0 {
		t.Error("quota fallback must not be cached")
	}
	if metrics.GetCounter(telemetry.MetricSynthQuotaFallbacks) != 1 {
		t.Errorf("quota fallbacks = %d, want 1", metrics.GetCounter(telemetry.MetricSynthQuotaFallbacks))
	}

	// The next call retries the external service and succeeds.
	artifact, err = cache.GetOrGenerate(context.Background(), 0, ModeAIPreferred)
	if err != nil {
		t.Fatalf("retry after quota fallback error = %v", err)
	}
	if artifact.ImageURL != "https://img.example/recovered.jpg" {
		t.Errorf("retry ImageURL = %q", artifact.ImageURL)
	}
	if fake.calls != 2 {
		t.Errorf("external calls = %d, want 2", fake.calls)
	}
}

func TestGetOrGenerateSurfacesOtherErrors(t *testing.T) {
	extErr := errortypes.ExternalError(errors.New("upstream 500"), "synthesis failed")
	fake := &fakeSynthesizer{errs: []error{extErr}}
	cache := NewCache(cacheIndex(t), fake, nil, nil)

	_, err := cache.GetOrGenerate(context.Background(), 0, ModeAIPreferred)
	if !errortypes.IsExternal(err) || errortypes.IsQuota(err) {
		t.Fatalf("error = %v, want non-quota external error", err)
	}
	if cache.Len() != 0 {
		t.Error("failed generation must not be cached")
	}
}

func TestGetOrGenerateCoercesCachedHandles(t *testing.T) {
	fake := &fakeSynthesizer{}
	cache := NewCache(cacheIndex(t), fake, nil, nil)
	cache.Put(0, Output{Handle: &FileHandle{URL: "https://img.example/handle.jpg", ContentType: "image/jpeg"}})

	artifact, err := cache.GetOrGenerate(context.Background(), 0, ModeAIPreferred)
	if err != nil {
		t.Fatalf("GetOrGenerate() error = %v", err)
	}
	if artifact.ImageURL != "https://img.example/handle.jpg" {
		t.Errorf("ImageURL = %q, want coerced handle URL", artifact.ImageURL)
	}
	if fake.calls != 0 {
		t.Errorf("external calls = %d, want 0 for a coercible hit", fake.calls)
	}

	// URL-list shapes coerce to their first entry.
	cache.Put(1, Output{URLs: []string{"https://img.example/list0.jpg", "https://img.example/list1.jpg"}})
	artifact, err = cache.GetOrGenerate(context.Background(), 1, ModeAIPreferred)
	if err != nil {
		t.Fatalf("GetOrGenerate() error = %v", err)
	}
	if artifact.ImageURL != "https://img.example/list0.jpg" {
		t.Errorf("ImageURL = %q, want first list entry", artifact.ImageURL)
	}
}

func TestGetOrGenerateRegeneratesUncoercibleEntries(t *testing.T) {
	fake := &fakeSynthesizer{outputs: []Output{{URL: "https://img.example/fresh.jpg"}}}
	cache := NewCache(cacheIndex(t), fake, nil, nil)
	cache.Put(0, Output{})

	artifact, err := cache.GetOrGenerate(context.Background(), 0, ModeAIPreferred)
	if err != nil {
		t.Fatalf("GetOrGenerate() error = %v", err)
	}
	if artifact.ImageURL != "https://img.example/fresh.jpg" {
		t.Errorf("ImageURL = %q, want regenerated reference", artifact.ImageURL)
	}
	if fake.calls != 1 {
		t.Errorf("external calls = %d, want 1", fake.calls)
	}
}

func TestGetOrGenerateInvalidInput(t *testing.T) {
	cache := NewCache(cacheIndex(t), &fakeSynthesizer{}, nil, nil)

	if _, err := cache.GetOrGenerate(context.Background(), 0, Mode("dream")); !errortypes.IsInvalidArgument(err) {
		t.Errorf("bad mode error = %v, want invalid argument", err)
	}
	if _, err := cache.GetOrGenerate(context.Background(), 99, ModeAIPreferred); !errortypes.IsOutOfRange(err) {
		t.Errorf("bad id error = %v, want out of range", err)
	}
	if _, err := cache.GetOrGenerate(context.Background(), 99, ModeLatentOnly); !errortypes.IsOutOfRange(err) {
		t.Errorf("bad id (latent-only) error = %v, want out of range", err)
	}
}

func TestCanonicalReference(t *testing.T) {
	tests := []struct {
		name    string
		out     Output
		want    string
		wantErr bool
	}{
		{"plain url", Output{URL: "https://a/1.jpg"}, "https://a/1.jpg", false},
		{"url list", Output{URLs: []string{"https://a/1.jpg", "https://a/2.jpg"}}, "https://a/1.jpg", false},
		{"file handle", Output{Handle: &FileHandle{URL: "https://a/h.jpg"}}, "https://a/h.jpg", false},
		{"empty", Output{}, "", true},
		{"empty list entry", Output{URLs: []string{""}}, "", true},
		{"handle without url", Output{Handle: &FileHandle{ContentType: "image/png"}}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalReference(tt.out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanonicalReference() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errortypes.IsExternal(err) {
					t.Errorf("error = %v, want external", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("CanonicalReference() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	d := latent.Details{
		Title:          "Spider",
		Artist:         "Louise Bourgeois",
		Nationality:    "American",
		Date:           "1997",
		Medium:         "Steel",
		Classification: "Sculpture",
	}
	got := BuildPrompt(d)
	want := "An artwork titled 'Spider' by Louise Bourgeois (American artist), " +
		"created in 1997, using Steel, classified as Sculpture. " +
		"Museum quality, high resolution, professional photography."
	if got != want {
		t.Errorf("BuildPrompt() = %q, want %q", got, want)
	}
}

func TestBuildPromptSkipsUnknown(t *testing.T) {
	d := latent.Details{
		Title:          "Untitled",
		Artist:         "Someone",
		Nationality:    collection.Unknown,
		Date:           collection.Unknown,
		Medium:         collection.Unknown,
		Classification: collection.Unknown,
	}
	got := BuildPrompt(d)
	want := "An artwork titled 'Untitled' by Someone. " +
		"Museum quality, high resolution, professional photography."
	if got != want {
		t.Errorf("BuildPrompt() = %q, want %q", got, want)
	}
}
