package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Validate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 100, cfg.ResolveBatchSize)
	assert.Equal(t, 500, cfg.MetadataBatchSize)
	assert.Equal(t, 3.0, cfg.MaxResolution)
	assert.Equal(t, "X-RAY DIFFRACTION", cfg.Method)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
}

func TestLoad_ParsesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"record_marker": "REC", "max_resolution": 2.5, "dry_run": true}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "REC", cfg.RecordMarker)
	assert.Equal(t, 2.5, cfg.MaxResolution)
	assert.True(t, cfg.DryRun)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{RecordMarker: "REC", MaxResolution: 2.0}
	merged := cfg.MergeWithDefaults(Defaults())

	// Explicit values survive; gaps fill from defaults.
	assert.Equal(t, "REC", merged.RecordMarker)
	assert.Equal(t, 2.0, merged.MaxResolution)
	assert.Equal(t, 100, merged.ResolveBatchSize)
	assert.Equal(t, Defaults().SearchURL, merged.SearchURL)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing target list", func(c *Config) { c.TargetListURL = "" }},
		{"missing marker", func(c *Config) { c.RecordMarker = "" }},
		{"zero batch size", func(c *Config) { c.ResolveBatchSize = -1 }},
		{"zero resolution", func(c *Config) { c.MaxResolution = -1 }},
		{"missing method", func(c *Config) { c.Method = "" }},
		{"bad url", func(c *Config) { c.SearchURL = "not a url" }},
		{"download url required", func(c *Config) { c.DownloadURL = ""; c.DryRun = false }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_DryRunWithoutDownloadURL(t *testing.T) {
	cfg := Defaults()
	cfg.DownloadURL = ""
	cfg.DryRun = true
	assert.NoError(t, cfg.Validate())
}
