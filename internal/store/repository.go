package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/KongYongGun/epub-studio/internal/logger"
	"github.com/KongYongGun/epub-studio/internal/project"
)

// Repository provides database operations for projects, presets, and
// build history, converting between persisted rows and domain types.
type Repository struct {
	db     *Database
	logger *logger.Logger
}

// NewRepository creates a new repository instance
func NewRepository(db *Database, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// SaveProject upserts the project row and replaces its chapter rows in
// one transaction.
func (r *Repository) SaveProject(p *project.Project) error {
	row := projectToRow(p)
	chapters := chaptersToRows(p)

	err := r.db.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to save project: %w", err)
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&Chapter{}).Error; err != nil {
			return fmt.Errorf("failed to clear chapters: %w", err)
		}
		if len(chapters) > 0 {
			if err := tx.Create(&chapters).Error; err != nil {
				return fmt.Errorf("failed to save chapters: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Saved project", map[string]interface{}{
		"project_id": p.ID,
		"chapters":   len(chapters),
	})
	return nil
}

// GetProject loads a project and its ordered chapters.
func (r *Repository) GetProject(id string) (*project.Project, error) {
	var row Project
	if err := r.db.GetDB().Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	var chapters []Chapter
	if err := r.db.GetDB().Where("project_id = ?", id).Order("position").Find(&chapters).Error; err != nil {
		return nil, fmt.Errorf("failed to get chapters: %w", err)
	}

	return rowToProject(&row, chapters), nil
}

// ListProjects lists all saved projects, most recently updated first.
// Chapter rows are not loaded.
func (r *Repository) ListProjects() ([]Project, error) {
	var rows []Project
	if err := r.db.GetDB().Order("updated_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return rows, nil
}

// DeleteProject removes a project and its chapters.
func (r *Repository) DeleteProject(id string) error {
	err := r.db.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&Chapter{}).Error; err != nil {
			return fmt.Errorf("failed to delete chapters: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&Project{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete project: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: project %s", ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("Deleted project", map[string]interface{}{
		"project_id": id,
	})
	return nil
}

// ListRegexPresets lists the chapter pattern catalog. When enabledOnly is
// set, disabled presets are skipped.
func (r *Repository) ListRegexPresets(enabledOnly bool) ([]RegexPreset, error) {
	q := r.db.GetDB().Order("id")
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	var presets []RegexPreset
	if err := q.Find(&presets).Error; err != nil {
		return nil, fmt.Errorf("failed to list regex presets: %w", err)
	}
	return presets, nil
}

// GetRegexPreset fetches one preset by id.
func (r *Repository) GetRegexPreset(id uint) (*RegexPreset, error) {
	var preset RegexPreset
	if err := r.db.GetDB().First(&preset, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: regex preset %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get regex preset: %w", err)
	}
	return &preset, nil
}

// SaveRegexPreset inserts or updates a preset.
func (r *Repository) SaveRegexPreset(preset *RegexPreset) error {
	if err := r.db.GetDB().Save(preset).Error; err != nil {
		return fmt.Errorf("failed to save regex preset: %w", err)
	}
	return nil
}

// ListStylePresets lists the text style catalog.
func (r *Repository) ListStylePresets() ([]StylePreset, error) {
	var presets []StylePreset
	if err := r.db.GetDB().Order("id").Find(&presets).Error; err != nil {
		return nil, fmt.Errorf("failed to list style presets: %w", err)
	}
	return presets, nil
}

// RecordBuild appends one build history entry.
func (r *Repository) RecordBuild(record *BuildRecord) error {
	if err := r.db.GetDB().Create(record).Error; err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}

	r.logger.Info("Recorded build", map[string]interface{}{
		"output_file": record.OutputFile,
		"chapters":    record.ChapterCount,
		"duration":    record.Duration.String(),
	})
	return nil
}

// ListBuilds lists build history, newest first, up to limit entries
// (0 means no limit).
func (r *Repository) ListBuilds(limit int) ([]BuildRecord, error) {
	q := r.db.GetDB().Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []BuildRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	return records, nil
}

func projectToRow(p *project.Project) Project {
	return Project{
		ID:                p.ID,
		Title:             p.Title,
		Author:            p.Author,
		Publisher:         p.Publisher,
		SourcePath:        p.SourcePath,
		Encoding:          p.Encoding,
		UpdatedAt:         time.Now(),
		CoverImagePath:    p.CoverImagePath,
		BodyFontPath:      p.BodyFontPath,
		ChapterFontPath:   p.ChapterFontPath,
		ChapterAlign:      string(p.Style.ChapterAlign),
		ChapterFontStyle:  p.Style.ChapterFontStyle,
		ChapterFontColor:  p.Style.ChapterFontColor,
		BodyAlign:         string(p.Style.BodyAlign),
		MarginTop:         p.Margins.Top,
		MarginBottom:      p.Margins.Bottom,
		DivideByChapter:   p.DivideByChapter,
		ChaptersPerVolume: p.ChaptersPerVolume,
	}
}

func chaptersToRows(p *project.Project) []Chapter {
	rows := make([]Chapter, 0, len(p.Chapters))
	for _, c := range p.Chapters {
		rows = append(rows, Chapter{
			ProjectID:   p.ID,
			Position:    c.Index,
			Title:       c.Title,
			StartOffset: c.Start,
			EndOffset:   c.End,
			ImagePath:   c.ImagePath,
			Pattern:     c.Pattern,
		})
	}
	return rows
}

func rowToProject(row *Project, chapters []Chapter) *project.Project {
	p := &project.Project{
		ID:              row.ID,
		Title:           row.Title,
		Author:          row.Author,
		Publisher:       row.Publisher,
		SourcePath:      row.SourcePath,
		Encoding:        row.Encoding,
		CoverImagePath:  row.CoverImagePath,
		BodyFontPath:    row.BodyFontPath,
		ChapterFontPath: row.ChapterFontPath,
		Style: project.StyleSettings{
			ChapterAlign:     project.Alignment(row.ChapterAlign),
			ChapterFontStyle: row.ChapterFontStyle,
			ChapterFontColor: row.ChapterFontColor,
			BodyAlign:        project.Alignment(row.BodyAlign),
		},
		Margins: project.Margins{
			Top:    row.MarginTop,
			Bottom: row.MarginBottom,
		},
		DivideByChapter:   row.DivideByChapter,
		ChaptersPerVolume: row.ChaptersPerVolume,
	}
	for i, c := range chapters {
		p.Chapters = append(p.Chapters, project.Chapter{
			Index:     i,
			Title:     c.Title,
			Start:     c.StartOffset,
			End:       c.EndOffset,
			ImagePath: c.ImagePath,
			Pattern:   c.Pattern,
		})
	}
	return p
}
