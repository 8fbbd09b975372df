package store

import (
	"time"

	"gorm.io/gorm"
)

// Project is the persisted form of a project and its metadata.
type Project struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Author     string    `json:"author"`
	Publisher  string    `json:"publisher"`
	SourcePath string    `json:"source_path"`
	Encoding   string    `json:"encoding"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	CoverImagePath  string `json:"cover_image_path"`
	BodyFontPath    string `json:"body_font_path"`
	ChapterFontPath string `json:"chapter_font_path"`

	ChapterAlign     string `json:"chapter_align"`
	ChapterFontStyle string `json:"chapter_font_style"`
	ChapterFontColor string `json:"chapter_font_color"`
	BodyAlign        string `json:"body_align"`

	MarginTop    int `json:"margin_top"`
	MarginBottom int `json:"margin_bottom"`

	DivideByChapter   bool `json:"divide_by_chapter"`
	ChaptersPerVolume int  `json:"chapters_per_volume"`

	Chapters []Chapter `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
}

// Chapter is one reading-order unit of a persisted project.
type Chapter struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProjectID string `gorm:"index;not null" json:"project_id"`
	Position  int    `gorm:"not null" json:"position"`
	Title     string `json:"title"`
	// Byte offsets into the decoded source text.
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	ImagePath   string `json:"image_path"`
	Pattern     string `json:"pattern"`
}

// RegexPreset is a named chapter-boundary pattern.
type RegexPreset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Example   string    `json:"example"`
	Pattern   string    `gorm:"not null" json:"pattern"`
	Enabled   bool      `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StylePreset is a named text style for chapter headings or body text.
type StylePreset struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Kind        string    `gorm:"not null" json:"kind"` // chapter, main, bracket
	Enabled     bool      `gorm:"default:true" json:"enabled"`
	Align       string    `json:"align"`
	FontStyle   string    `json:"font_style"`
	FontColor   string    `json:"font_color"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BuildRecord is one line of build history, appended after each emit.
type BuildRecord struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	ProjectID    string        `gorm:"index" json:"project_id"`
	OutputFile   string        `gorm:"not null" json:"output_file"`
	Title        string        `json:"title"`
	Author       string        `json:"author"`
	ChapterCount int           `json:"chapter_count"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}

// BeforeCreate hook for Project
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	return nil
}

// BeforeUpdate hook for Project
func (p *Project) BeforeUpdate(tx *gorm.DB) error {
	p.UpdatedAt = time.Now()
	return nil
}

// BeforeCreate hook for RegexPreset
func (rp *RegexPreset) BeforeCreate(tx *gorm.DB) error {
	if rp.CreatedAt.IsZero() {
		rp.CreatedAt = time.Now()
	}
	if rp.UpdatedAt.IsZero() {
		rp.UpdatedAt = time.Now()
	}
	return nil
}

// BeforeUpdate hook for RegexPreset
func (rp *RegexPreset) BeforeUpdate(tx *gorm.DB) error {
	rp.UpdatedAt = time.Now()
	return nil
}

// BeforeCreate hook for StylePreset
func (sp *StylePreset) BeforeCreate(tx *gorm.DB) error {
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now()
	}
	if sp.UpdatedAt.IsZero() {
		sp.UpdatedAt = time.Now()
	}
	return nil
}

// BeforeUpdate hook for StylePreset
func (sp *StylePreset) BeforeUpdate(tx *gorm.DB) error {
	sp.UpdatedAt = time.Now()
	return nil
}

// BeforeCreate hook for BuildRecord
func (br *BuildRecord) BeforeCreate(tx *gorm.DB) error {
	if br.CreatedAt.IsZero() {
		br.CreatedAt = time.Now()
	}
	return nil
}
