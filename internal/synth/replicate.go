package synth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
)

const (
	defaultReplicateBaseURL = "https://api.replicate.com/v1"
	defaultReplicateModel   = "black-forest-labs/flux-schnell"

	// DefaultSynthTimeout bounds a synchronous prediction call.
	DefaultSynthTimeout = 60 * time.Second
)

// ReplicateSynthesizer implements the Synthesizer interface against a
// Replicate-style predictions API, run synchronously.
type ReplicateSynthesizer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// ReplicateOptions configures a ReplicateSynthesizer. Zero values select
// defaults.
type ReplicateOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewReplicateSynthesizer creates a synthesizer backed by a Replicate-style
// predictions endpoint.
func NewReplicateSynthesizer(opts ReplicateOptions) *ReplicateSynthesizer {
	model := opts.Model
	if model == "" {
		model = defaultReplicateModel
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultReplicateBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultSynthTimeout
	}

	return &ReplicateSynthesizer{
		apiKey:     opts.APIKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the synthesizer name.
func (s *ReplicateSynthesizer) Name() string {
	return "replicate/" + s.model
}

type replicateInput struct {
	Prompt        string `json:"prompt"`
	NumOutputs    int    `json:"num_outputs"`
	AspectRatio   string `json:"aspect_ratio"`
	OutputFormat  string `json:"output_format"`
	OutputQuality int    `json:"output_quality"`
}

type replicateRequest struct {
	Input replicateInput `json:"input"`
}

type replicateResponse struct {
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error,omitempty"`
	Detail string          `json:"detail,omitempty"`
}

// GenerateImage runs one synchronous prediction and returns its raw output.
// HTTP 402, or an error payload reporting insufficient credit, maps to the
// quota error type; every other failure is an external error.
func (s *ReplicateSynthesizer) GenerateImage(ctx context.Context, prompt string) (Output, error) {
	if s.apiKey == "" {
		return Output{}, errortypes.ConfigError(nil, "image synthesis API key not provided")
	}

	reqJSON, err := json.Marshal(replicateRequest{
		Input: replicateInput{
			Prompt:        prompt,
			NumOutputs:    1,
			AspectRatio:   "1:1",
			OutputFormat:  "jpg",
			OutputQuality: 80,
		},
	})
	if err != nil {
		return Output{}, fmt.Errorf("error marshaling synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", s.baseURL, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return Output{}, fmt.Errorf("error creating synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	// Block until the prediction completes instead of polling.
	req.Header.Set("Prefer", "wait")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Output{}, errortypes.ExternalError(err, "synthesis request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Output{}, errortypes.ExternalError(err, "error reading synthesis response")
	}

	var result replicateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Output{}, errortypes.ExternalError(
			fmt.Errorf("status %d: %w", resp.StatusCode, err),
			"error unmarshaling synthesis response")
	}

	if resp.StatusCode == http.StatusPaymentRequired || quotaDetail(result) {
		return Output{}, errortypes.QuotaError(
			fmt.Errorf("status %d: %s", resp.StatusCode, firstNonEmpty(result.Detail, result.Error)),
			"insufficient synthesis credit")
	}
	if result.Error != "" {
		return Output{}, errortypes.ExternalError(
			fmt.Errorf("prediction error: %s", result.Error),
			"synthesis API error")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Output{}, errortypes.ExternalError(
			fmt.Errorf("status %d: %s", resp.StatusCode, respBody),
			"synthesis API error")
	}

	return parseOutput(result.Output)
}

// quotaDetail recognizes an insufficient-credit report in the response
// payload. The check lives here, inside the adapter, so the rest of the
// system only ever sees the typed quota error.
func quotaDetail(r replicateResponse) bool {
	for _, msg := range []string{r.Detail, r.Error} {
		if msg == "" {
			continue
		}
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "insufficient credit") || strings.Contains(lower, "insufficient quota") {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseOutput handles the known output shapes: a single reference string or
// a list of references.
func parseOutput(raw json.RawMessage) (Output, error) {
	if len(raw) == 0 {
		return Output{}, errortypes.ExternalError(
			fmt.Errorf("prediction completed without output"),
			"unrecognized synthesis result")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return Output{URL: single}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return Output{URLs: list}, nil
	}

	return Output{}, errortypes.ExternalError(
		fmt.Errorf("unexpected output shape: %s", raw),
		"unrecognized synthesis result")
}
