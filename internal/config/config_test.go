package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 8*1024, cfg.Detection.EncodingSampleSize)
	assert.Equal(t, 0.7, cfg.Detection.ConfidenceThreshold)
	assert.Equal(t, "center", cfg.Epub.ChapterAlign)
	assert.Equal(t, filepath.Join("./data", "epub-studio.db"), cfg.Paths.DatabaseFile)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
  format: json
paths:
  data_dir: /tmp/epub-data
epub:
  chapter_align: left
  chapters_per_volume: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/epub-data", cfg.Paths.DataDir)
	assert.Equal(t, "left", cfg.Epub.ChapterAlign)
	assert.Equal(t, 50, cfg.Epub.ChaptersPerVolume)
	// Untouched values keep their defaults.
	assert.Equal(t, 1, cfg.Epub.TopMargin)
	assert.Equal(t, 4, cfg.Epub.BottomMargin)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))

	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATABASE_FILE", "/tmp/custom.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "/tmp/custom.db", cfg.Paths.DatabaseFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad threshold", func(c *Config) { c.Detection.ConfidenceThreshold = 1.5 }, true},
		{"bad chapter align", func(c *Config) { c.Epub.ChapterAlign = "justify" }, true},
		{"bad body align", func(c *Config) { c.Epub.BodyAlign = "middle" }, true},
		{"zero chapters per volume", func(c *Config) { c.Epub.ChaptersPerVolume = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "epub.chapter_align", Msg: "must be one of left, center, right"}
	assert.Contains(t, err.Error(), "epub.chapter_align")
}
