// Package projection implements the linear dimensionality reduction fitted
// once over the full embedding matrix at build time.
package projection

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"

	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
)

// DefaultDimensions is the target dimensionality of reduced vectors.
const DefaultDimensions = 50

// Model is a fitted principal-component projection: an orthogonal basis over
// mean-centered input plus the fraction of variance the basis retains.
// Immutable after Fit.
type Model struct {
	Mean              []float64   `json:"mean"`
	Components        [][]float64 `json:"components"` // OutputDim rows of length InputDim
	ExplainedVariance float64     `json:"explained_variance"`
	InputDim          int         `json:"input_dim"`
	OutputDim         int         `json:"output_dim"`
}

// Fit computes a principal-component projection of vectors to outDim
// dimensions. outDim is clamped to min(len(vectors), input dimensionality) so
// small spaces still build; callers can read the effective value from the
// returned model.
func Fit(vectors [][]float32, outDim int) (*Model, error) {
	n := len(vectors)
	if n == 0 {
		return nil, errortypes.BuildIntegrityError(nil, "cannot fit projection over empty vector set")
	}
	inDim := len(vectors[0])
	if inDim == 0 {
		return nil, errortypes.BuildIntegrityError(nil, "cannot fit projection over zero-length vectors")
	}

	if outDim <= 0 {
		outDim = DefaultDimensions
	}
	if outDim > inDim {
		outDim = inDim
	}
	if outDim > n {
		outDim = n
	}

	data := make([]float64, n*inDim)
	for i, v := range vectors {
		if len(v) != inDim {
			return nil, errortypes.BuildIntegrityError(
				fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), inDim),
				"inconsistent vector dimensions")
		}
		for j, val := range v {
			data[i*inDim+j] = float64(val)
		}
	}
	x := mat.NewDense(n, inDim, data)

	// Center columns on their means.
	mean := make([]float64, inDim)
	for j := 0; j < inDim; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x.At(i, j)
		}
		mean[j] = sum / float64(n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < inDim; j++ {
			x.Set(i, j, x.At(i, j)-mean[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, errortypes.InternalError(nil, "SVD factorization failed")
	}

	var vt mat.Dense
	svd.VTo(&vt)
	singular := svd.Values(nil)

	// Variance along each principal axis is s^2/(n-1); the retained fraction
	// is the leading outDim axes' share of the total.
	var total, retained float64
	for i, s := range singular {
		v := s * s
		total += v
		if i < outDim {
			retained += v
		}
	}
	variance := 0.0
	if total > 0 {
		variance = retained / total
	}

	// vt columns are right singular vectors; row c of Components is the c-th
	// principal axis.
	components := make([][]float64, outDim)
	for c := 0; c < outDim; c++ {
		row := make([]float64, inDim)
		for j := 0; j < inDim; j++ {
			row[j] = vt.At(j, c)
		}
		components[c] = row
	}

	return &Model{
		Mean:              mean,
		Components:        components,
		ExplainedVariance: variance,
		InputDim:          inDim,
		OutputDim:         outDim,
	}, nil
}

// Transform projects a single full-dimensionality vector into the reduced
// space.
func (m *Model) Transform(v []float32) ([]float32, error) {
	if len(v) != m.InputDim {
		return nil, fmt.Errorf("vector has %d dimensions, projection expects %d", len(v), m.InputDim)
	}

	out := make([]float32, m.OutputDim)
	for c, axis := range m.Components {
		var dot float64
		for j, val := range v {
			dot += (float64(val) - m.Mean[j]) * axis[j]
		}
		out[c] = float32(dot)
	}
	return out, nil
}

// TransformAll projects every vector, preserving order.
func (m *Model) TransformAll(vectors [][]float32) ([][]float32, error) {
	reduced := make([][]float32, len(vectors))
	for i, v := range vectors {
		r, err := m.Transform(v)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		reduced[i] = r
	}
	return reduced, nil
}

// SaveFile serializes the fitted model to path as JSON.
func (m *Model) SaveFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal projection model: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFile reads a serialized model from path.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse projection model: %w", err)
	}
	return &m, nil
}
