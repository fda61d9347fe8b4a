package embed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// DefaultOpenAIModel is the default OpenAI embedding model (small, cheap,
// 1536 dimensions, matches the default in internal/config).
const DefaultOpenAIModel = "text-embedding-3-small"

// DefaultOpenAITimeout bounds a single EmbedBatch call (spec §5's
// per-call timeout) when OpenAIConfig doesn't set one.
const DefaultOpenAITimeout = 30 * time.Second

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
}

// DefaultOpenAIConfig returns OpenAIConfig with the service's default model.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:      DefaultOpenAIModel,
		Dimensions: 1536,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultOpenAITimeout,
	}
}

// OpenAIEmbedder generates embeddings via the OpenAI Embeddings endpoint.
// Unlike the local embedders (Ollama, MLX) it has no thermal-throttling
// concerns, so SetBatchIndex/SetFinalBatch are no-ops.
type OpenAIEmbedder struct {
	client    openai.Client
	config    OpenAIConfig
	modelName string
	dims      int
	breaker   *ragerr.CircuitBreaker

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates a new OpenAI embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embedder: API key required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultOpenAITimeout
	}

	return &OpenAIEmbedder{
		client:    openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		config:    cfg,
		modelName: cfg.Model,
		dims:      cfg.Dimensions,
		breaker:   ragerr.NewCircuitBreaker("embed-openai"),
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai embedder: no embedding returned")
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("openai embedder: closed")
	}
	if len(texts) == 0 {
		return nil, nil
	}
	if !e.breaker.Allow() {
		return nil, ragerr.DependencyUnavailableError("openai embedder circuit breaker open", nil)
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: e.config.Model,
	}

	callCtx := ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	resp, err := e.client.Embeddings.New(callCtx, params)
	if err != nil {
		e.breaker.RecordFailure()
		if callCtx.Err() != nil && ctx.Err() == nil {
			return nil, ragerr.TransientError("openai embedding request timed out", callCtx.Err())
		}
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		e.breaker.RecordFailure()
		return nil, fmt.Errorf("openai embedder: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}
	e.breaker.RecordSuccess()

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		v := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float32(f)
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimensions() int { return e.dims }
func (e *OpenAIEmbedder) ModelName() string { return e.modelName }

func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	_, err := e.EmbedBatch(ctx, []string{"availability check"})
	return err == nil
}

func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// SetBatchIndex is a no-op; OpenAI's hosted endpoint has no thermal state.
func (e *OpenAIEmbedder) SetBatchIndex(idx int) {}

// SetFinalBatch is a no-op; OpenAI's hosted endpoint has no thermal state.
func (e *OpenAIEmbedder) SetFinalBatch(isFinal bool) {}
