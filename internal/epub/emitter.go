// Package epub assembles EPUB archives from a project and its decoded
// source text, and validates the result. The layout is EPUB 3 with EPUB 2
// compatibility pieces (toc.ncx, guide) so older readers open it too.
package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KongYongGun/epub-studio/internal/logger"
	"github.com/KongYongGun/epub-studio/internal/project"
)

// MimeType is the required content of the mimetype entry.
const MimeType = "application/epub+zip"

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

// Emitter writes EPUB archives.
type Emitter struct {
	logger *logger.Logger
}

// NewEmitter creates an emitter.
func NewEmitter(log *logger.Logger) *Emitter {
	return &Emitter{logger: log}
}

// Emit writes the project as one or more EPUB files and returns the paths
// written. When the project requests chapter division and has more
// chapters than fit one volume, output is split into numbered volumes
// named "<base>_01권.epub" style; otherwise a single file at outputPath.
func (e *Emitter) Emit(p *project.Project, sourceText string, outputPath string) ([]string, error) {
	chapters := p.Chapters
	if len(chapters) == 0 {
		// No detected boundaries: the whole text is one chapter.
		chapters = []project.Chapter{{
			Title: p.Title,
			Start: 0,
			End:   len(sourceText),
		}}
	}
	if err := validateSpans(chapters, len(sourceText)); err != nil {
		return nil, err
	}

	perVolume := p.ChaptersPerVolume
	if !p.DivideByChapter || perVolume <= 0 || len(chapters) <= perVolume {
		if err := e.emitOne(p, sourceText, chapters, outputPath, p.Title); err != nil {
			return nil, err
		}
		return []string{outputPath}, nil
	}

	groups := divideChapters(chapters, perVolume)
	digits := len(fmt.Sprintf("%d", len(groups)))
	if digits < 2 {
		digits = 2
	}

	ext := filepath.Ext(outputPath)
	base := strings.TrimSuffix(outputPath, ext)
	if ext == "" {
		ext = ".epub"
	}

	paths := make([]string, 0, len(groups))
	for i, group := range groups {
		volumeTitle := fmt.Sprintf("%s %d권", p.Title, i+1)
		path := fmt.Sprintf("%s_%0*d권%s", base, digits, i+1, ext)
		if err := e.emitOne(p, sourceText, group, path, volumeTitle); err != nil {
			return paths, fmt.Errorf("volume %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}

	e.logger.Info("Emitted divided volumes", map[string]interface{}{
		"volumes":             len(paths),
		"chapters_per_volume": perVolume,
	})
	return paths, nil
}

func (e *Emitter) emitOne(p *project.Project, sourceText string, chapters []project.Chapter, outputPath, title string) error {
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := e.writeArchive(f, p, sourceText, chapters, title); err != nil {
		os.Remove(outputPath)
		return err
	}

	e.logger.Info("Emitted EPUB", map[string]interface{}{
		"path":     outputPath,
		"chapters": len(chapters),
		"duration": time.Since(start).String(),
	})
	return nil
}

func (e *Emitter) writeArchive(w io.Writer, p *project.Project, sourceText string, chapters []project.Chapter, title string) error {
	zw := zip.NewWriter(w)

	// The mimetype entry must be first and uncompressed.
	mt, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("failed to create mimetype entry: %w", err)
	}
	if _, err := mt.Write([]byte(MimeType)); err != nil {
		return fmt.Errorf("failed to write mimetype: %w", err)
	}

	if err := addEntry(zw, "META-INF/container.xml", []byte(containerXML)); err != nil {
		return err
	}

	book := &book{
		identifier: uuid.NewString(),
		title:      title,
		author:     p.Author,
		publisher:  p.Publisher,
		modified:   time.Now().UTC(),
	}

	if p.CoverImagePath != "" {
		data, err := normalizeCover(p.CoverImagePath)
		if err != nil {
			return fmt.Errorf("failed to prepare cover image: %w", err)
		}
		if err := addEntry(zw, "OEBPS/cover.jpg", data); err != nil {
			return err
		}
		if err := addEntry(zw, "OEBPS/cover.xhtml", []byte(coverXHTML())); err != nil {
			return err
		}
		book.hasCover = true
	}

	var fontFaces []fontFace
	for _, font := range []struct{ path, family string }{
		{p.BodyFontPath, "BodyFont"},
		{p.ChapterFontPath, "ChapterFont"},
	} {
		if font.path == "" {
			continue
		}
		data, err := os.ReadFile(font.path)
		if err != nil {
			return fmt.Errorf("failed to read font %s: %w", font.path, err)
		}
		name := "fonts/" + filepath.Base(font.path)
		if err := addEntry(zw, "OEBPS/"+name, data); err != nil {
			return err
		}
		fontFaces = append(fontFaces, fontFace{Family: font.family, File: name})
		book.fonts = append(book.fonts, name)
	}

	css := buildStylesheet(p.Style, p.Margins, fontFaces)
	if err := addEntry(zw, "OEBPS/stylesheet.css", []byte(css)); err != nil {
		return err
	}

	for i, c := range chapters {
		imageName := ""
		if c.ImagePath != "" {
			data, err := normalizeChapterImage(c.ImagePath)
			if err != nil {
				return fmt.Errorf("failed to prepare chapter image %s: %w", c.ImagePath, err)
			}
			imageName = fmt.Sprintf("images/chapter%03d.jpg", i+1)
			if err := addEntry(zw, "OEBPS/"+imageName, data); err != nil {
				return err
			}
			book.images = append(book.images, imageName)
		}

		name := fmt.Sprintf("chapter%03d.xhtml", i+1)
		body := sourceText[c.Start:c.End]
		doc := chapterXHTML(c.Title, body, imageName)
		if err := addEntry(zw, "OEBPS/"+name, []byte(doc)); err != nil {
			return err
		}
		book.chapters = append(book.chapters, chapterRef{
			File:  name,
			Title: c.Title,
		})
	}

	if err := addEntry(zw, "OEBPS/nav.xhtml", []byte(navXHTML(book))); err != nil {
		return err
	}
	if err := addEntry(zw, "OEBPS/toc.ncx", []byte(tocNCX(book))); err != nil {
		return err
	}
	if err := addEntry(zw, "OEBPS/content.opf", []byte(contentOPF(book))); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func addEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", name, err)
	}
	return nil
}

func validateSpans(chapters []project.Chapter, textLen int) error {
	for i, c := range chapters {
		if c.Start < 0 || c.End > textLen || c.End < c.Start {
			return fmt.Errorf("chapter %d span [%d,%d) outside text of length %d",
				i, c.Start, c.End, textLen)
		}
	}
	return nil
}

func divideChapters(chapters []project.Chapter, perVolume int) [][]project.Chapter {
	var groups [][]project.Chapter
	for start := 0; start < len(chapters); start += perVolume {
		end := start + perVolume
		if end > len(chapters) {
			end = len(chapters)
		}
		groups = append(groups, chapters[start:end])
	}
	return groups
}
