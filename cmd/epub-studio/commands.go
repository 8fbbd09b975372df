package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/KongYongGun/epub-studio/internal/chapter"
	"github.com/KongYongGun/epub-studio/internal/config"
	"github.com/KongYongGun/epub-studio/internal/encoding"
	"github.com/KongYongGun/epub-studio/internal/epub"
	"github.com/KongYongGun/epub-studio/internal/font"
	"github.com/KongYongGun/epub-studio/internal/logger"
	"github.com/KongYongGun/epub-studio/internal/project"
	"github.com/KongYongGun/epub-studio/internal/store"
)

func openRepository(cfg *config.Config) (*store.Database, *store.Repository, error) {
	db, err := store.NewDatabase(cfg.Paths.DatabaseFile, logger.Get())
	if err != nil {
		return nil, nil, err
	}
	return db, store.NewRepository(db, logger.Get()), nil
}

// loadSource reads a text file, detects its encoding from a leading
// sample, and decodes the whole file to UTF-8.
func loadSource(path string, cfg *config.Config) (string, encoding.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", encoding.Result{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sample := data
	if len(sample) > cfg.Detection.EncodingSampleSize {
		sample = sample[:cfg.Detection.EncodingSampleSize]
	}
	detected := encoding.Detect(sample)

	return encoding.DecodeWithFallback(data, detected.Encoding), detected, nil
}

func detectCommand() *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "Detect the text encoding of a file",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one file argument")
			}

			result, err := encoding.DetectFile(c.Args().First(), cfg.Detection.EncodingSampleSize)
			if err != nil {
				return err
			}

			fmt.Printf("encoding:   %s\n", result.Encoding)
			fmt.Printf("confidence: %.2f\n", result.Confidence)
			if result.Language != "" {
				fmt.Printf("language:   %s\n", result.Language)
			}
			if result.Confidence < cfg.Detection.ConfidenceThreshold {
				fmt.Println("note: low confidence, result may be wrong")
			}
			return nil
		},
	}
}

func chaptersCommand() *cli.Command {
	return &cli.Command{
		Name:      "chapters",
		Usage:     "List chapter boundaries found in a text file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "pattern",
				Aliases: []string{"p"},
				Usage:   "Chapter boundary regex (default: all enabled presets)",
			},
			&cli.UintFlag{
				Name:  "preset",
				Usage: "Use a single preset by id",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one file argument")
			}

			text, detected, err := loadSource(c.Args().First(), cfg)
			if err != nil {
				return err
			}

			var boundaries []chapter.Boundary
			switch {
			case c.String("pattern") != "":
				boundaries, err = chapter.Find(text, c.String("pattern"))
				if err != nil {
					return err
				}
			case c.Uint("preset") != 0:
				db, repo, err := openRepository(cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				preset, err := repo.GetRegexPreset(uint(c.Uint("preset")))
				if err != nil {
					return err
				}
				boundaries, err = chapter.Find(text, preset.Pattern)
				if err != nil {
					return err
				}
			default:
				db, repo, err := openRepository(cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				presets, err := repo.ListRegexPresets(true)
				if err != nil {
					return err
				}
				patterns := make([]chapter.Pattern, 0, len(presets))
				for _, p := range presets {
					patterns = append(patterns, chapter.Pattern{Name: p.Name, Expr: p.Pattern})
				}
				boundaries = chapter.FindAny(text, patterns)
			}

			fmt.Printf("encoding %s, %d boundaries\n", detected.Encoding, len(boundaries))
			for i, b := range boundaries {
				fmt.Printf("%4d  line %-6d offset %-10d %s\n", i+1, b.Line, b.Offset, b.Title)
			}
			return nil
		},
	}
}

func fontCheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "font-check",
		Usage:     "Check whether a font covers all characters used in a text file",
		ArgsUsage: "FONT FILE",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "extra",
				Usage: "Extra strings (title, author) to include in the check",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.NArg() != 2 {
				return fmt.Errorf("expected FONT and FILE arguments")
			}

			text, _, err := loadSource(c.Args().Get(1), cfg)
			if err != nil {
				return err
			}

			checker := font.NewChecker(cfg.Detection.FontSampleSize)
			report, err := checker.Analyze(c.Args().Get(0), text, c.StringSlice("extra")...)
			if err != nil {
				return err
			}

			fmt.Printf("font:          %s\n", report.FontName)
			fmt.Printf("glyphs:        %d\n", report.NumGlyphs)
			fmt.Printf("used chars:    %d\n", report.TotalUsedChars)
			fmt.Printf("unsupported:   %d\n", report.UnsupportedCount)
			fmt.Printf("compatibility: %.1f%%\n", report.CompatibilityRate)
			if report.Compatible {
				fmt.Println("result:        compatible")
			} else {
				fmt.Println("result:        NOT compatible")
				fmt.Printf("missing:       %s\n", string(report.UnsupportedChars))
			}
			return nil
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Build an EPUB from a text file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output EPUB path (default: source name with .epub)",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Book title (default: source file name)",
			},
			&cli.StringFlag{
				Name:  "author",
				Usage: "Book author",
			},
			&cli.StringFlag{
				Name:  "publisher",
				Usage: "Book publisher",
			},
			&cli.StringFlag{
				Name:    "pattern",
				Aliases: []string{"p"},
				Usage:   "Chapter boundary regex (default: all enabled presets)",
			},
			&cli.StringFlag{
				Name:  "cover",
				Usage: "Cover image path",
			},
			&cli.StringFlag{
				Name:  "body-font",
				Usage: "Font file to embed for body text",
			},
			&cli.StringFlag{
				Name:  "chapter-font",
				Usage: "Font file to embed for chapter titles",
			},
			&cli.BoolFlag{
				Name:  "divide",
				Usage: "Split output into volumes",
			},
			&cli.IntFlag{
				Name:  "per-volume",
				Usage: "Chapters per volume when dividing",
			},
			&cli.BoolFlag{
				Name:  "validate",
				Usage: "Validate the emitted archive(s)",
				Value: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one file argument")
			}
			sourcePath := c.Args().First()

			text, detected, err := loadSource(sourcePath, cfg)
			if err != nil {
				return err
			}

			db, repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			title := c.String("title")
			if title == "" {
				base := filepath.Base(sourcePath)
				title = strings.TrimSuffix(base, filepath.Ext(base))
			}

			p := project.New(title)
			p.Author = c.String("author")
			p.Publisher = c.String("publisher")
			p.SourcePath = sourcePath
			p.Encoding = detected.Encoding
			p.CoverImagePath = c.String("cover")
			p.BodyFontPath = c.String("body-font")
			p.ChapterFontPath = c.String("chapter-font")
			p.Style = project.StyleSettings{
				ChapterAlign:     project.Alignment(cfg.Epub.ChapterAlign),
				ChapterFontStyle: cfg.Epub.ChapterFontStyle,
				ChapterFontColor: cfg.Epub.ChapterFontColor,
				BodyAlign:        project.Alignment(cfg.Epub.BodyAlign),
			}
			p.Margins = project.Margins{Top: cfg.Epub.TopMargin, Bottom: cfg.Epub.BottomMargin}
			p.DivideByChapter = c.Bool("divide") || cfg.Epub.DivideByChapter
			p.ChaptersPerVolume = cfg.Epub.ChaptersPerVolume
			if c.Int("per-volume") > 0 {
				p.ChaptersPerVolume = c.Int("per-volume")
			}

			var boundaries []chapter.Boundary
			if expr := c.String("pattern"); expr != "" {
				boundaries, err = chapter.Find(text, expr)
				if err != nil {
					return err
				}
			} else {
				presets, err := repo.ListRegexPresets(true)
				if err != nil {
					return err
				}
				patterns := make([]chapter.Pattern, 0, len(presets))
				for _, preset := range presets {
					patterns = append(patterns, chapter.Pattern{Name: preset.Name, Expr: preset.Pattern})
				}
				boundaries = chapter.FindAny(text, patterns)
			}
			p.SetChapters(chapter.Split(text, boundaries))

			output := c.String("output")
			if output == "" {
				base := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath))
				output = filepath.Join(cfg.Paths.OutputDir, filepath.Base(base)+".epub")
			}

			start := time.Now()
			emitter := epub.NewEmitter(logger.Get())
			paths, err := emitter.Emit(p, text, output)
			if err != nil {
				return err
			}
			duration := time.Since(start)

			if err := repo.SaveProject(p); err != nil {
				return err
			}
			for _, path := range paths {
				if err := repo.RecordBuild(&store.BuildRecord{
					ProjectID:    p.ID,
					OutputFile:   path,
					Title:        p.Title,
					Author:       p.Author,
					ChapterCount: len(p.Chapters),
					Duration:     duration,
				}); err != nil {
					return err
				}
			}

			for _, path := range paths {
				fmt.Printf("wrote %s\n", path)
				if !c.Bool("validate") {
					continue
				}
				issues, err := epub.Validate(path)
				if err != nil {
					return err
				}
				for _, issue := range issues {
					fmt.Printf("  issue: %s\n", issue)
				}
			}
			return nil
		},
	}
}

func presetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "presets",
		Usage: "List chapter regex presets",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "enabled",
				Usage: "Show only enabled presets",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			db, repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			presets, err := repo.ListRegexPresets(c.Bool("enabled"))
			if err != nil {
				return err
			}

			for _, p := range presets {
				state := " "
				if !p.Enabled {
					state = "-"
				}
				fmt.Printf("%s %3d  %-12s %-40s %s\n", state, p.ID, p.Name, p.Example, p.Pattern)
			}
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List build history",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Show at most N records",
				Value:   20,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			db, repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := repo.ListBuilds(c.Int("limit"))
			if err != nil {
				return err
			}

			for _, r := range records {
				fmt.Printf("%s  %-30s %3d chapters  %8s  %s\n",
					r.CreatedAt.Format("2006-01-02 15:04"),
					r.Title, r.ChapterCount, r.Duration.Round(time.Millisecond), r.OutputFile)
			}
			return nil
		},
	}
}
