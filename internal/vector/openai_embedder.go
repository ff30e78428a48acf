package vector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1/embeddings"
	defaultOpenAIModel    = "text-embedding-3-small"

	// openAIRequestTimeout bounds each embedding call; the build pipeline must
	// never hang on a slow upstream.
	openAIRequestTimeout = 60 * time.Second
)

// OpenAIEmbedder implements the Embedder interface against an OpenAI-style
// embeddings endpoint. Calls are rate-limited client side so large builds
// stay inside the provider's request budget.
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	endpoint   string
	dimensions int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// OpenAIOptions configures an OpenAIEmbedder. Zero values select defaults.
type OpenAIOptions struct {
	APIKey            string
	Model             string
	Endpoint          string
	Dimensions        int
	RequestsPerSecond float64
}

// NewOpenAIEmbedder creates an embedder backed by an OpenAI-style API.
func NewOpenAIEmbedder(opts OpenAIOptions) *OpenAIEmbedder {
	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	dimensions := opts.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &OpenAIEmbedder{
		apiKey:     opts.APIKey,
		model:      model,
		endpoint:   endpoint,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: openAIRequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Dimensions returns the length of the vectors this embedder produces.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Name identifies the embedder for build metadata.
func (e *OpenAIEmbedder) Name() string {
	return fmt.Sprintf("openai/%s-%d", e.model, e.dimensions)
}

type openAIRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions"`
}

type openAIEmbedding struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type openAIResponse struct {
	Data  []openAIEmbedding `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// EmbedBatch sends texts to the embeddings endpoint and returns one vector
// per input, in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.apiKey == "" {
		return nil, errortypes.ConfigError(nil, "embedding API key not provided")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqJSON, err := json.Marshal(openAIRequest{
		Model:      e.model,
		Input:      texts,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("error creating embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, errortypes.ExternalError(err, "embedding request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errortypes.ExternalError(err, "error reading embedding response")
	}

	var result openAIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, errortypes.ExternalError(err, "error unmarshaling embedding response")
	}

	if result.Error != nil {
		return nil, errortypes.ExternalError(
			fmt.Errorf("%s: %s", result.Error.Type, result.Error.Message),
			"embedding API error")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errortypes.ExternalError(
			fmt.Errorf("status %d: %s", resp.StatusCode, respBody),
			"embedding API error")
	}

	if len(result.Data) != len(texts) {
		return nil, errortypes.ExternalError(
			fmt.Errorf("got %d embeddings for %d inputs", len(result.Data), len(texts)),
			"embedding count mismatch")
	}

	sort.Slice(result.Data, func(i, j int) bool {
		return result.Data[i].Index < result.Data[j].Index
	})

	vectors := make([][]float32, len(result.Data))
	for i, d := range result.Data {
		if len(d.Embedding) != e.dimensions {
			return nil, errortypes.ExternalError(
				fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(d.Embedding), e.dimensions),
				"embedding dimension mismatch")
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
