// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// RetrievalConfig configures C7's fusion, decay and diversification.
type RetrievalConfig struct {
	// VectorWeight and KeywordWeight must sum to 1.0; Validate
	// renormalizes them at load time if they do not.
	VectorWeight  float64 `yaml:"vector_weight" json:"vector_weight"`
	KeywordWeight float64 `yaml:"keyword_weight" json:"keyword_weight"`

	// OverFetch multiplies top_k for each sub-search before fusion.
	OverFetch int `yaml:"over_fetch" json:"over_fetch"`

	// MaxPerDoc bounds how many candidates from one doc_id survive
	// diversification.
	MaxPerDoc int `yaml:"max_per_doc" json:"max_per_doc"`

	// RecencyWeight is the default applied when a request does not
	// specify one.
	RecencyWeight float64 `yaml:"recency_weight" json:"recency_weight"`

	// FusionMode selects the score-combination algorithm: "minmax"
	// (the default) or "rrf" (reciprocal rank fusion, an alternate).
	FusionMode string `yaml:"fusion_mode" json:"fusion_mode"`
	RRFConstant int    `yaml:"rrf_constant" json:"rrf_constant"`

	BM25K1 float64 `yaml:"bm25_k1" json:"bm25_k1"`
	BM25B  float64 `yaml:"bm25_b" json:"bm25_b"`

	RerankEnabled bool `yaml:"rerank_enabled" json:"rerank_enabled"`
}

// ChunkingConfig configures C2.
type ChunkingConfig struct {
	// Strategy is one of "sentence", "token", "semantic".
	Strategy     string `yaml:"strategy" json:"strategy"`
	ChunkSize    int    `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap" json:"chunk_overlap"`

	// SemanticBreakpointPercentile is the percentile of adjacent-window
	// similarity drops treated as a split point in the semantic strategy.
	SemanticBreakpointPercentile int `yaml:"semantic_breakpoint_percentile" json:"semantic_breakpoint_percentile"`
}

// EmbeddingsConfig configures the embedding provider used by C2/C6/C7.
type EmbeddingsConfig struct {
	Provider   string        `yaml:"provider" json:"provider"` // "openai", "ollama", "mlx", "static" (fallback)
	Model      string        `yaml:"model" json:"model"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	BatchSize  int           `yaml:"batch_size" json:"batch_size"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`

	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	OpenAIKey  string `yaml:"openai_api_key" json:"-"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
}

// GenerationConfig configures C9's LLM provider.
type GenerationConfig struct {
	Provider    string        `yaml:"provider" json:"provider"` // "anthropic", "openai"
	Model       string        `yaml:"model" json:"model"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	APIKey      string        `yaml:"api_key" json:"-"`
}

// CacheConfig configures C8.
type CacheConfig struct {
	Capacity int           `yaml:"capacity" json:"capacity"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// StoreConfig configures the vector index and metadata store backing.
type StoreConfig struct {
	DataDir        string        `yaml:"data_dir" json:"data_dir"`
	VectorMetric   string        `yaml:"vector_metric" json:"vector_metric"`
	VectorM        int           `yaml:"vector_m" json:"vector_m"`
	VectorEfSearch int           `yaml:"vector_ef_search" json:"vector_ef_search"`
	VectorTimeout  time.Duration `yaml:"vector_timeout" json:"vector_timeout"`
	SQLitePath     string        `yaml:"sqlite_path" json:"sqlite_path"`
}

// ServerConfig configures the HTTP-shaped query/chat surface.
type ServerConfig struct {
	Address  string `yaml:"address" json:"address"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// ObservabilityConfig configures the telemetry sink's OTLP export.
// Counters and structured events are always recorded in-process;
// this only governs whether they're also shipped to a collector.
type ObservabilityConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	Insecure    bool   `yaml:"insecure" json:"insecure"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// NewConfig returns a Config populated with the system's defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Retrieval: RetrievalConfig{
			VectorWeight:  0.7,
			KeywordWeight: 0.3,
			OverFetch:     4,
			MaxPerDoc:     3,
			RecencyWeight: 0,
			FusionMode:    "minmax",
			RRFConstant:   60,
			BM25K1:        1.5,
			BM25B:         0.75,
			RerankEnabled: false,
		},
		Chunking: ChunkingConfig{
			Strategy:                     "sentence",
			ChunkSize:                    512,
			ChunkOverlap:                 50,
			SemanticBreakpointPercentile: 95,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			BatchSize:  32,
			Timeout:    30 * time.Second,
			CacheSize:  1000,
		},
		Generation: GenerationConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-5",
			Temperature: 0.3,
			MaxTokens:   2048,
			Timeout:     30 * time.Second,
		},
		Cache: CacheConfig{
			Capacity: 1000,
			TTL:      time.Hour,
		},
		Store: StoreConfig{
			DataDir:        defaultDataDir(),
			VectorMetric:   "cos",
			VectorM:        16,
			VectorEfSearch: 64,
			VectorTimeout:  2 * time.Second,
			SQLitePath:     filepath.Join(defaultDataDir(), "metadata.db"),
		},
		Server: ServerConfig{
			Address:  ":8080",
			LogLevel: "info",
		},
		Observability: ObservabilityConfig{
			Enabled:     false,
			ServiceName: "org-archivist",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "org-archivist")
	}
	return filepath.Join(home, ".org-archivist")
}

// Load applies configuration in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. A YAML file at path, if it exists
//  3. Environment variables (RAG_*)
//
// Validate is always run last.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Retrieval.VectorWeight != 0 {
		c.Retrieval.VectorWeight = other.Retrieval.VectorWeight
	}
	if other.Retrieval.KeywordWeight != 0 {
		c.Retrieval.KeywordWeight = other.Retrieval.KeywordWeight
	}
	if other.Retrieval.OverFetch != 0 {
		c.Retrieval.OverFetch = other.Retrieval.OverFetch
	}
	if other.Retrieval.MaxPerDoc != 0 {
		c.Retrieval.MaxPerDoc = other.Retrieval.MaxPerDoc
	}
	if other.Retrieval.FusionMode != "" {
		c.Retrieval.FusionMode = other.Retrieval.FusionMode
	}
	if other.Retrieval.RRFConstant != 0 {
		c.Retrieval.RRFConstant = other.Retrieval.RRFConstant
	}
	if other.Retrieval.BM25K1 != 0 {
		c.Retrieval.BM25K1 = other.Retrieval.BM25K1
	}
	if other.Retrieval.BM25B != 0 {
		c.Retrieval.BM25B = other.Retrieval.BM25B
	}
	if other.Retrieval.RerankEnabled {
		c.Retrieval.RerankEnabled = true
	}
	if other.Chunking.Strategy != "" {
		c.Chunking.Strategy = other.Chunking.Strategy
	}
	if other.Chunking.ChunkSize != 0 {
		c.Chunking.ChunkSize = other.Chunking.ChunkSize
	}
	if other.Chunking.ChunkOverlap != 0 {
		c.Chunking.ChunkOverlap = other.Chunking.ChunkOverlap
	}
	if other.Chunking.SemanticBreakpointPercentile != 0 {
		c.Chunking.SemanticBreakpointPercentile = other.Chunking.SemanticBreakpointPercentile
	}
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.Timeout != 0 {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.OpenAIKey != "" {
		c.Embeddings.OpenAIKey = other.Embeddings.OpenAIKey
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Generation.Provider != "" {
		c.Generation.Provider = other.Generation.Provider
	}
	if other.Generation.Model != "" {
		c.Generation.Model = other.Generation.Model
	}
	if other.Generation.Temperature != 0 {
		c.Generation.Temperature = other.Generation.Temperature
	}
	if other.Generation.MaxTokens != 0 {
		c.Generation.MaxTokens = other.Generation.MaxTokens
	}
	if other.Generation.Timeout != 0 {
		c.Generation.Timeout = other.Generation.Timeout
	}
	if other.Cache.Capacity != 0 {
		c.Cache.Capacity = other.Cache.Capacity
	}
	if other.Cache.TTL != 0 {
		c.Cache.TTL = other.Cache.TTL
	}
	if other.Store.DataDir != "" {
		c.Store.DataDir = other.Store.DataDir
	}
	if other.Store.VectorMetric != "" {
		c.Store.VectorMetric = other.Store.VectorMetric
	}
	if other.Store.VectorM != 0 {
		c.Store.VectorM = other.Store.VectorM
	}
	if other.Store.VectorEfSearch != 0 {
		c.Store.VectorEfSearch = other.Store.VectorEfSearch
	}
	if other.Store.VectorTimeout != 0 {
		c.Store.VectorTimeout = other.Store.VectorTimeout
	}
	if other.Store.SQLitePath != "" {
		c.Store.SQLitePath = other.Store.SQLitePath
	}
	if other.Server.Address != "" {
		c.Server.Address = other.Server.Address
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Observability.Enabled {
		c.Observability.Enabled = true
	}
	if other.Observability.OTLPEndpoint != "" {
		c.Observability.OTLPEndpoint = other.Observability.OTLPEndpoint
	}
	if other.Observability.Insecure {
		c.Observability.Insecure = true
	}
	if other.Observability.ServiceName != "" {
		c.Observability.ServiceName = other.Observability.ServiceName
	}
}

// applyEnvOverrides applies RAG_* environment variable overrides, the
// highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RAG_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Retrieval.VectorWeight = f
		}
	}
	if v := os.Getenv("RAG_KEYWORD_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Retrieval.KeywordWeight = f
		}
	}
	if v := os.Getenv("RAG_DATA_DIR"); v != "" {
		c.Store.DataDir = v
	}
	if v := os.Getenv("RAG_SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := os.Getenv("RAG_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("RAG_OPENAI_API_KEY"); v != "" {
		c.Embeddings.OpenAIKey = v
	}
	if v := os.Getenv("RAG_ANTHROPIC_API_KEY"); v != "" {
		c.Generation.APIKey = v
	}
	if v := os.Getenv("RAG_OPENAI_GENERATION_API_KEY"); v != "" && c.Generation.Provider == "openai" {
		c.Generation.APIKey = v
	}
	if v := os.Getenv("RAG_SERVER_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("RAG_OTLP_ENDPOINT"); v != "" {
		c.Observability.OTLPEndpoint = v
		c.Observability.Enabled = true
	}
}

// Validate checks field ranges and cross-field invariants, normalizing
// the retrieval weights if they do not sum to 1.0.
func (c *Config) Validate() error {
	var problems []string

	if c.Retrieval.VectorWeight < 0 || c.Retrieval.KeywordWeight < 0 {
		problems = append(problems, "retrieval weights must be non-negative")
	}
	sum := c.Retrieval.VectorWeight + c.Retrieval.KeywordWeight
	if sum > 0 && (sum < 0.999 || sum > 1.001) {
		c.Retrieval.VectorWeight /= sum
		c.Retrieval.KeywordWeight /= sum
	}
	if c.Retrieval.OverFetch < 1 {
		problems = append(problems, "over_fetch must be >= 1")
	}
	if c.Retrieval.MaxPerDoc < 1 {
		problems = append(problems, "max_per_doc must be >= 1")
	}
	if c.Retrieval.FusionMode != "minmax" && c.Retrieval.FusionMode != "rrf" {
		problems = append(problems, fmt.Sprintf("unknown fusion_mode %q", c.Retrieval.FusionMode))
	}
	switch c.Chunking.Strategy {
	case "sentence", "token", "semantic":
	default:
		problems = append(problems, fmt.Sprintf("unknown chunking strategy %q", c.Chunking.Strategy))
	}
	if c.Chunking.ChunkSize <= 0 {
		problems = append(problems, "chunk_size must be > 0")
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		problems = append(problems, "chunk_overlap must be >= 0 and < chunk_size")
	}
	if c.Cache.Capacity <= 0 {
		problems = append(problems, "cache.capacity must be > 0")
	}
	if c.Cache.TTL <= 0 {
		problems = append(problems, "cache.ttl must be > 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// WriteYAML persists the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
