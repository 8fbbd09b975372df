package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Logging configuration
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// File paths
	Paths struct {
		DataDir      string `yaml:"data_dir"`
		DatabaseFile string `yaml:"database_file"`
		OutputDir    string `yaml:"output_dir"`
	} `yaml:"paths"`

	// Detection settings for the background workers
	Detection struct {
		// EncodingSampleSize is how many leading bytes are fed to the
		// encoding detector. The original tool used 8 KiB.
		EncodingSampleSize int `yaml:"encoding_sample_size"`
		// FontSampleSize caps how much text is scanned when collecting
		// used characters for the font compatibility check.
		FontSampleSize int `yaml:"font_sample_size"`
		// ConfidenceThreshold below which a detected encoding is treated
		// as advisory only (the caller should confirm with the user).
		ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	} `yaml:"detection"`

	// Epub holds defaults applied to new projects
	Epub struct {
		TopMargin         int    `yaml:"top_margin"`
		BottomMargin      int    `yaml:"bottom_margin"`
		ChapterAlign      string `yaml:"chapter_align"`
		ChapterFontStyle  string `yaml:"chapter_font_style"`
		ChapterFontColor  string `yaml:"chapter_font_color"`
		BodyAlign         string `yaml:"body_align"`
		DivideByChapter   bool   `yaml:"divide_by_chapter"`
		ChaptersPerVolume int    `yaml:"chapters_per_volume"`
	} `yaml:"epub"`
}

// Load loads configuration from a file (if specified) and environment variables.
// Configuration priority: 1) Command line flags, 2) Environment variables, 3) Config file, 4) Defaults
func Load(configFile string) (*Config, error) {
	cfg := defaults()

	if configFile != "" {
		absConfigFile, err := filepath.Abs(configFile)
		if err == nil {
			configFile = absConfigFile
		}

		data, err := os.ReadFile(configFile)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", configFile)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if cfg.Paths.DatabaseFile == "" {
		cfg.Paths.DatabaseFile = filepath.Join(cfg.Paths.DataDir, "epub-studio.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config populated with default values
func defaults() *Config {
	cfg := &Config{}
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	cfg.Paths.DataDir = "./data"
	cfg.Paths.OutputDir = "."
	cfg.Detection.EncodingSampleSize = 8 * 1024
	cfg.Detection.FontSampleSize = 1024 * 1024
	cfg.Detection.ConfidenceThreshold = 0.7
	cfg.Epub.TopMargin = 1
	cfg.Epub.BottomMargin = 4
	cfg.Epub.ChapterAlign = "center"
	cfg.Epub.ChapterFontStyle = "bold"
	cfg.Epub.ChapterFontColor = "#000000"
	cfg.Epub.BodyAlign = "left"
	cfg.Epub.ChaptersPerVolume = 100
	return cfg
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}
	if dbFile := os.Getenv("DATABASE_FILE"); dbFile != "" {
		cfg.Paths.DatabaseFile = dbFile
	}
	if outDir := os.Getenv("OUTPUT_DIR"); outDir != "" {
		cfg.Paths.OutputDir = outDir
	}
	if sample := getIntFromEnv("ENCODING_SAMPLE_SIZE", 0); sample > 0 {
		cfg.Detection.EncodingSampleSize = sample
	}
	if sample := getIntFromEnv("FONT_SAMPLE_SIZE", 0); sample > 0 {
		cfg.Detection.FontSampleSize = sample
	}
	if threshold := getFloat64FromEnv("CONFIDENCE_THRESHOLD", 0); threshold > 0 {
		cfg.Detection.ConfidenceThreshold = threshold
	}
	if divide, set := os.LookupEnv("DIVIDE_BY_CHAPTER"); set {
		cfg.Epub.DivideByChapter = strings.ToLower(divide) == "true"
	}
	if perVolume := getIntFromEnv("CHAPTERS_PER_VOLUME", 0); perVolume > 0 {
		cfg.Epub.ChaptersPerVolume = perVolume
	}
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		return &ConfigError{
			Field: "detection.confidence_threshold",
			Msg:   "must be between 0 and 1",
		}
	}

	switch c.Epub.ChapterAlign {
	case "left", "center", "right":
	default:
		return &ConfigError{
			Field: "epub.chapter_align",
			Msg:   "must be one of left, center, right",
		}
	}

	switch c.Epub.BodyAlign {
	case "left", "center", "right":
	default:
		return &ConfigError{
			Field: "epub.body_align",
			Msg:   "must be one of left, center, right",
		}
	}

	if c.Epub.ChaptersPerVolume <= 0 {
		return &ConfigError{
			Field: "epub.chapters_per_volume",
			Msg:   "must be positive",
		}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Msg
}

// Helper functions for environment variable parsing
func getIntFromEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		i, err := strconv.Atoi(value)
		if err != nil {
			return fallback
		}
		return i
	}
	return fallback
}

func getFloat64FromEnv(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fallback
		}
		return f
	}
	return fallback
}
