// Package project defines the authoring state for one e-book: source text
// metadata, style settings, and the ordered chapter sequence. The chapter
// spans index into the decoded source text and must tile it without
// overlap; every mutation here preserves that invariant.
package project

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/KongYongGun/epub-studio/internal/chapter"
)

var (
	// ErrInvalidChapters reports a chapter sequence whose spans are out
	// of order, overlapping, or outside the source text.
	ErrInvalidChapters = errors.New("invalid chapter sequence")

	// ErrNoSuchChapter reports an index outside the chapter sequence.
	ErrNoSuchChapter = errors.New("no such chapter")
)

// Alignment is a horizontal text alignment used in generated stylesheets.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Valid reports whether the alignment is one of the supported values.
func (a Alignment) Valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

// StyleSettings control the generated stylesheet for chapter headings and
// body text.
type StyleSettings struct {
	ChapterAlign     Alignment
	ChapterFontStyle string
	ChapterFontColor string
	BodyAlign        Alignment
}

// Margins are page margins in em units.
type Margins struct {
	Top    int
	Bottom int
}

// Chapter is one reading-order unit: a [Start,End) byte span of the
// decoded source text.
type Chapter struct {
	Index     int
	Title     string
	Start     int
	End       int
	ImagePath string
	Pattern   string
}

// Project is the complete authoring state for one e-book.
type Project struct {
	ID         string
	Title      string
	Author     string
	Publisher  string
	SourcePath string
	Encoding   string

	CoverImagePath  string
	BodyFontPath    string
	ChapterFontPath string

	Style   StyleSettings
	Margins Margins

	DivideByChapter   bool
	ChaptersPerVolume int

	Chapters []Chapter
}

// New creates a project with default style settings.
func New(title string) *Project {
	return &Project{
		ID:    uuid.NewString(),
		Title: title,
		Style: StyleSettings{
			ChapterAlign:     AlignCenter,
			ChapterFontStyle: "bold",
			ChapterFontColor: "#000000",
			BodyAlign:        AlignLeft,
		},
		Margins:           Margins{Top: 1, Bottom: 4},
		ChaptersPerVolume: 100,
	}
}

// SetChapters replaces the whole chapter sequence from detection spans.
func (p *Project) SetChapters(spans []chapter.Span) {
	chapters := make([]Chapter, 0, len(spans))
	for i, s := range spans {
		chapters = append(chapters, Chapter{
			Index:   i,
			Title:   s.Title,
			Start:   s.Start,
			End:     s.End,
			Pattern: s.Pattern,
		})
	}
	p.Chapters = chapters
}

// ValidateChapters checks the span invariants against the decoded source
// text length: spans are strictly increasing, non-overlapping, non-empty,
// and within [0, textLen].
func (p *Project) ValidateChapters(textLen int) error {
	prev := 0
	for i, c := range p.Chapters {
		if c.Start < 0 || c.End > textLen {
			return fmt.Errorf("%w: chapter %d span [%d,%d) outside text of length %d",
				ErrInvalidChapters, i, c.Start, c.End, textLen)
		}
		if c.End <= c.Start {
			return fmt.Errorf("%w: chapter %d span [%d,%d) is empty",
				ErrInvalidChapters, i, c.Start, c.End)
		}
		if c.Start < prev {
			return fmt.Errorf("%w: chapter %d starts at %d before previous end %d",
				ErrInvalidChapters, i, c.Start, prev)
		}
		prev = c.End
	}
	return nil
}

// SplitChapterAt splits the chapter containing offset into two at that
// offset. The first half keeps the original title; the second half gets
// the given title.
func (p *Project) SplitChapterAt(offset int, title string) error {
	for i, c := range p.Chapters {
		if offset <= c.Start || offset >= c.End {
			continue
		}
		second := Chapter{
			Title: title,
			Start: offset,
			End:   c.End,
		}
		p.Chapters[i].End = offset
		p.Chapters = append(p.Chapters[:i+1],
			append([]Chapter{second}, p.Chapters[i+1:]...)...)
		p.reindex()
		return nil
	}
	return fmt.Errorf("%w: no chapter interior contains offset %d", ErrNoSuchChapter, offset)
}

// DeleteChapter removes the chapter at index, merging its span into the
// previous chapter, or into the next one when deleting the first.
func (p *Project) DeleteChapter(index int) error {
	if index < 0 || index >= len(p.Chapters) {
		return fmt.Errorf("%w: index %d of %d", ErrNoSuchChapter, index, len(p.Chapters))
	}
	c := p.Chapters[index]
	switch {
	case index > 0:
		p.Chapters[index-1].End = c.End
	case len(p.Chapters) > 1:
		p.Chapters[1].Start = c.Start
	}
	p.Chapters = append(p.Chapters[:index], p.Chapters[index+1:]...)
	p.reindex()
	return nil
}

// RenameChapter changes the title of the chapter at index.
func (p *Project) RenameChapter(index int, title string) error {
	if index < 0 || index >= len(p.Chapters) {
		return fmt.Errorf("%w: index %d of %d", ErrNoSuchChapter, index, len(p.Chapters))
	}
	p.Chapters[index].Title = title
	return nil
}

func (p *Project) reindex() {
	for i := range p.Chapters {
		p.Chapters[i].Index = i
	}
}
