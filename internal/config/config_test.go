package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 0.7, cfg.Retrieval.VectorWeight)
	assert.Equal(t, 0.3, cfg.Retrieval.KeywordWeight)
	assert.Equal(t, 4, cfg.Retrieval.OverFetch)
	assert.Equal(t, 3, cfg.Retrieval.MaxPerDoc)
	assert.Equal(t, 1.5, cfg.Retrieval.BM25K1)
	assert.Equal(t, 0.75, cfg.Retrieval.BM25B)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RenormalizesWeights(t *testing.T) {
	cfg := NewConfig()
	cfg.Retrieval.VectorWeight = 2.0
	cfg.Retrieval.KeywordWeight = 2.0

	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 0.5, cfg.Retrieval.VectorWeight, 1e-9)
	assert.InDelta(t, 0.5, cfg.Retrieval.KeywordWeight, 1e-9)
}

func TestValidate_RejectsUnknownStrategy(t *testing.T) {
	cfg := NewConfig()
	cfg.Chunking.Strategy = "paragraph"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunking strategy")
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  max_per_doc: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retrieval.MaxPerDoc)
	assert.Equal(t, 0.7, cfg.Retrieval.VectorWeight)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Retrieval, cfg.Retrieval)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  data_dir: /tmp/file-data\n"), 0o644))
	t.Setenv("RAG_DATA_DIR", "/tmp/custom-data")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-data", cfg.Store.DataDir)
}
