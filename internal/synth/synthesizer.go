// Package synth provides the image-synthesis adapter, the deterministic
// prompt builder, and the memoizing generation cache.
package synth

import (
	"context"
	"fmt"

	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
)

// Synthesizer defines the interface for the external image-synthesis
// service. Implementations must return a quota-typed error (see
// errortypes.IsQuota) when the service reports insufficient credit, so the
// caller can fall back instead of failing.
type Synthesizer interface {
	// GenerateImage turns a prompt into an image reference. Blocking,
	// potentially slow; callers apply a timeout via ctx and must not hold any
	// lock across the call.
	GenerateImage(ctx context.Context, prompt string) (Output, error)

	// Name returns the synthesizer name.
	Name() string
}

// FileHandle is a rich result handle some services return instead of a plain
// URL string.
type FileHandle struct {
	URL         string
	ContentType string
}

// Output is the raw, possibly heterogeneous result of an image synthesis
// call: a plain reference, a list of references, or a rich handle. Exactly
// one field should be set.
type Output struct {
	URL    string
	URLs   []string
	Handle *FileHandle
}

// CanonicalReference coerces an output into its canonical string reference.
// Known shapes are handled exhaustively; an unrecognized or empty shape is an
// error, never a silent stringification.
func CanonicalReference(out Output) (string, error) {
	switch {
	case out.URL != "":
		return out.URL, nil
	case len(out.URLs) > 0:
		if out.URLs[0] == "" {
			return "", errortypes.ExternalError(
				fmt.Errorf("empty reference in result list"),
				"unrecognized synthesis result")
		}
		return out.URLs[0], nil
	case out.Handle != nil:
		if out.Handle.URL == "" {
			return "", errortypes.ExternalError(
				fmt.Errorf("file handle without URL"),
				"unrecognized synthesis result")
		}
		return out.Handle.URL, nil
	default:
		return "", errortypes.ExternalError(
			fmt.Errorf("empty synthesis result"),
			"unrecognized synthesis result")
	}
}
