package vector

import (
	"bytes"
	"math"
	"testing"
)

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		wantUnit bool
	}{
		{"simple vector", []float32{3, 4}, true},
		{"already unit", []float32{1, 0, 0}, true},
		{"negative components", []float32{-1, 2, -3}, true},
		{"tiny but nonzero", []float32{1e-3, 0}, true},
		{"zero vector passes through", []float32{0, 0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(append([]float32(nil), tt.input...))
			norm := vectorNorm(got)

			if tt.wantUnit {
				if math.Abs(norm-1.0) > 1e-6 {
					t.Errorf("Normalize() norm = %v, want 1.0", norm)
				}
			} else {
				for i, x := range got {
					if x != tt.input[i] {
						t.Errorf("Normalize() changed zero vector at %d: got %v", i, x)
					}
				}
			}
		})
	}
}

func TestNormalizePreservesDirection(t *testing.T) {
	v := []float32{2, -6, 4}
	orig := append([]float32(nil), v...)
	Normalize(v)

	sim, err := CosineSimilarity(v, orig)
	if err != nil {
		t.Fatalf("CosineSimilarity() error = %v", err)
	}
	if math.Abs(sim-1.0) > 1e-6 {
		t.Errorf("normalized vector direction changed: similarity = %v", sim)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{"identical direction", []float32{1, 2, 3}, []float32{2, 4, 6}, 1.0, false},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0, false},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1.0, false},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0, true},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CosineSimilarity() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.5}
	b := []float32{-0.1, 0.4, 0.9, -0.2}

	ab, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatalf("CosineSimilarity(a, b) error = %v", err)
	}
	ba, err := CosineSimilarity(b, a)
	if err != nil {
		t.Fatalf("CosineSimilarity(b, a) error = %v", err)
	}
	if math.Abs(ab-ba) > 1e-12 {
		t.Errorf("similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{1.5, -2.25, 3.125},
		{0, 0, 0},
		{-0.001, 1e6, 42},
	}

	var buf bytes.Buffer
	if err := WriteMatrix(&buf, vectors); err != nil {
		t.Fatalf("WriteMatrix() error = %v", err)
	}

	got, err := ReadMatrix(&buf)
	if err != nil {
		t.Fatalf("ReadMatrix() error = %v", err)
	}
	if len(got) != len(vectors) {
		t.Fatalf("ReadMatrix() returned %d rows, want %d", len(got), len(vectors))
	}
	for i := range vectors {
		if len(got[i]) != len(vectors[i]) {
			t.Fatalf("row %d has %d columns, want %d", i, len(got[i]), len(vectors[i]))
		}
		for j := range vectors[i] {
			if got[i][j] != vectors[i][j] {
				t.Errorf("value at (%d, %d) = %v, want %v", i, j, got[i][j], vectors[i][j])
			}
		}
	}
}

func TestMatrixFileRoundTrip(t *testing.T) {
	path := t.TempDir() + "/matrix.f32"
	vectors := [][]float32{{1, 2}, {3, 4}, {5, 6}}

	if err := SaveMatrixFile(path, vectors); err != nil {
		t.Fatalf("SaveMatrixFile() error = %v", err)
	}
	got, err := LoadMatrixFile(path)
	if err != nil {
		t.Fatalf("LoadMatrixFile() error = %v", err)
	}
	if len(got) != 3 || len(got[0]) != 2 {
		t.Fatalf("LoadMatrixFile() shape = %dx%d, want 3x2", len(got), len(got[0]))
	}
	if got[2][1] != 6 {
		t.Errorf("LoadMatrixFile()[2][1] = %v, want 6", got[2][1])
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	texts := []string{"first description", "second description"}

	a, err := e.EmbedBatch(t.Context(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	b, err := e.EmbedBatch(t.Context(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}

	for i := range a {
		if len(a[i]) != 64 {
			t.Fatalf("embedding %d has %d dimensions, want 64", i, len(a[i]))
		}
		if math.Abs(vectorNorm(a[i])-1.0) > 1e-6 {
			t.Errorf("embedding %d is not unit length: %v", i, vectorNorm(a[i]))
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("embedding %d not deterministic at %d", i, j)
			}
		}
	}

	if a[0][0] == a[1][0] && a[0][1] == a[1][1] && a[0][2] == a[1][2] {
		t.Error("distinct texts produced suspiciously identical embeddings")
	}
}
