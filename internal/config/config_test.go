package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
source:
  list_url: https://en.wikipedia.org/wiki/List_of_Walt_Disney_Pictures_films
  exclude_patterns: ["redlink=1"]
logic:
  fetcher: colly
  max_concurrent_workers: 4
  requests_per_second: 2.5
output:
  dir: out
  csv: movies.csv
verify:
  policy: fail
`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "colly", cfg.Logic.Fetcher)
	assert.Equal(t, 4, cfg.Logic.MaxConcurrentWorkers)
	assert.Equal(t, 2.5, cfg.Logic.RequestsPerSecond)
	assert.Equal(t, 100, cfg.Logic.PauseEvery)
	assert.Equal(t, 25, cfg.Logic.PauseSec)
	assert.Equal(t, ".wikitable.sortable i a", cfg.Source.LinkSelector)
	assert.Equal(t, []string{"redlink=1"}, cfg.Source.ExcludePatterns)
	assert.Equal(t, "fail", cfg.Verify.Policy)
	assert.Equal(t, "lower", cfg.Logic.CurrencyRange)
	assert.False(t, cfg.DB.Enabled())

	assert.Equal(t, filepath.Join("out", "movies.csv"), cfg.Output.Path(cfg.Output.CSV))
	assert.Equal(t, filepath.Join("out", "records.bson"), cfg.Output.Path(cfg.Output.RichBSON))
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("INFOBOX_WORKERS", "8")
	t.Setenv("INFOBOX_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("INFOBOX_VERIFY_POLICY", "reloaded")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Logic.MaxConcurrentWorkers)
	assert.True(t, cfg.DB.Enabled())
	assert.Equal(t, "infobox", cfg.DB.Database)
	assert.Equal(t, "reloaded", cfg.Verify.Policy)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`
logic:
  fetcher: curl
verify:
  policy: ignore
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.list_url is required")
	assert.Contains(t, err.Error(), "logic.fetcher")
	assert.Contains(t, err.Error(), "verify.policy")
}

func TestParse_BadYAML(t *testing.T) {
	_, err := Parse([]byte("source: [unclosed"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "wikipedia", cfg.Source.Name)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOutputConfig_PathKeepsAbsolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "x.csv")
	assert.Equal(t, abs, OutputConfig{Dir: "out"}.Path(abs))
	assert.Equal(t, "", OutputConfig{Dir: "out"}.Path(""))
}
