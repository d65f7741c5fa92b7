package comps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultEmbeddingURL   = "https://api.openai.com/v1/embeddings"
)

// EmbeddingClient turns text into a dense vector for semantic comparison.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint directly over HTTP.
type OpenAIEmbedder struct {
	apiKey string
	url    string
	model  string
	httpc  *http.Client
}

func NewOpenAIEmbedderFromEnv() (*OpenAIEmbedder, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not configured")
	}
	url := strings.TrimSpace(os.Getenv("OPENAI_EMBEDDINGS_URL"))
	if url == "" {
		url = defaultEmbeddingURL
	}
	model := strings.TrimSpace(os.Getenv("OPENAI_EMBEDDING_MODEL"))
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &OpenAIEmbedder{
		apiKey: apiKey,
		url:    url,
		model:  model,
		httpc:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embeddingRequest{Model: o.model, Input: []string{text}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpc.Do(req)
	if err != nil {
		return nil, &ProviderError{Kind: providerKindFor(classifyTransportError(err)), Op: "embed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Kind: ProviderServerError, Op: "embed", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		kind := ProviderServerError
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			kind = ProviderRateLimited
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			kind = ProviderInvalidResponse
		}
		return nil, &ProviderError{Kind: kind, Op: "embed", Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))}
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ProviderError{Kind: ProviderInvalidResponse, Op: "embed", Err: err}
	}
	if parsed.Error != nil {
		return nil, &ProviderError{Kind: ProviderInvalidResponse, Op: "embed", Err: errors.New(parsed.Error.Message)}
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, &ProviderError{Kind: ProviderInvalidResponse, Op: "embed", Err: errors.New("empty embedding")}
	}
	return parsed.Data[0].Embedding, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when either vector is zero length or zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
