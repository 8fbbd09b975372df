// Command epub-studio authors EPUB e-books from plain text sources:
// encoding detection, chapter splitting via regex presets, font
// compatibility checks, and packaged EPUB output with build history.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/KongYongGun/epub-studio/internal/config"
	"github.com/KongYongGun/epub-studio/internal/logger"
)

// init initializes the logger with default values
func init() {
	logger.Setup(logger.Config{
		Level:      "info",
		Format:     logger.FormatConsole,
		TimeFormat: time.RFC3339,
	})
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "epub-studio",
		Usage:   "Author EPUB e-books from plain text sources",
		Version: fmt.Sprintf("%s (%s) %s", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (console, json)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory for the project database",
			},
		},
		Commands: []*cli.Command{
			detectCommand(),
			chaptersCommand(),
			fontCheckCommand(),
			buildCommand(),
			presetsCommand(),
			historyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Get().Error("Error running application", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

// loadConfig resolves configuration with flags overriding env and file
// values, then reconfigures the logger accordingly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if v := c.String("data-dir"); v != "" {
		cfg.Paths.DataDir = v
		cfg.Paths.DatabaseFile = filepath.Join(v, "epub-studio.db")
	}

	logger.ForceSetup(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     logger.ParseLogFormat(cfg.Logging.Format),
		TimeFormat: time.RFC3339,
	})
	return cfg, nil
}
