package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  path: "data/caselens.db"
  seed_path: "data/seed.json"
redis:
  host: "localhost"
  port: 6379
reasoner:
  base_url: "https://generativelanguage.googleapis.com"
  model: "gemini-2.5-flash"
  api_key_env: "GEMINI_API_KEY"
  requests_per_minute: 60
caselens:
  http_addr: ":8001"
  max_iterations: 20
  result_char_budget: 30000
  snapshot_ttl_seconds: 300
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "data/caselens.db", cfg.Database.Path)
	require.Equal(t, "gemini-2.5-flash", cfg.Reasoner.Model)
	require.Equal(t, 20, cfg.CaseLens.MaxIterations)
	require.Equal(t, 30000, cfg.CaseLens.ResultCharBudget)
}

func TestLoadConfig_missingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
