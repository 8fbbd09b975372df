// Package font checks whether a TrueType/OpenType font can be embedded in
// an ePub and whether it covers the characters actually used by the source
// text. Coverage analysis mirrors the original tool: collect the set of
// runes used by the text (plus title/author), probe the font's character
// map for each, and report the unsupported remainder.
package font

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/font/sfnt"

	"github.com/KongYongGun/epub-studio/pkg/cache"
)

// ErrUnreadableFont indicates the font file cannot be opened or parsed.
// It is reported to the user and not retried.
var ErrUnreadableFont = errors.New("font: unreadable font file")

// DefaultSampleSize caps how much text is scanned for used characters.
const DefaultSampleSize = 1024 * 1024

// UnsupportedSampleCap limits how many unsupported runes a report carries.
const UnsupportedSampleCap = 50

// controlChars are excluded from coverage analysis; no font is expected to
// carry glyphs for them.
var controlChars = map[rune]bool{
	'\n': true, '\r': true, '\t': true, ' ': true,
	'\u200b': true, '\ufeff': true,
}

// Report is the outcome of a font compatibility check.
type Report struct {
	FontPath          string  `json:"font_path"`
	FontName          string  `json:"font_name"`
	NumGlyphs         int     `json:"num_glyphs"`
	TotalUsedChars    int     `json:"total_used_chars"`
	UnsupportedCount  int     `json:"unsupported_count"`
	UnsupportedChars  []rune  `json:"unsupported_chars"`
	Compatible        bool    `json:"is_compatible"`
	CompatibilityRate float64 `json:"compatibility_rate"`
	AnalyzedText      bool    `json:"analyzed_text"`
}

// Checker performs font compatibility checks, caching parsed results per
// font path and modification time.
type Checker struct {
	cache      *cache.Cache[*Report]
	sampleSize int
}

// NewChecker creates a Checker with the given text sample cap.
// sampleSize <= 0 uses DefaultSampleSize.
func NewChecker(sampleSize int) *Checker {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Checker{
		cache:      cache.New[*Report](),
		sampleSize: sampleSize,
	}
}

// Check verifies that the font file parses as TTF/OTF/TTC and returns its
// basic properties. A file that cannot be opened or parsed yields a wrapped
// ErrUnreadableFont.
func (c *Checker) Check(fontPath string) (*Report, error) {
	f, err := parseFontFile(fontPath)
	if err != nil {
		return nil, err
	}

	var buf sfnt.Buffer
	name, err := f.Name(&buf, sfnt.NameIDFamily)
	if err != nil {
		name = filepath.Base(fontPath)
	}

	return &Report{
		FontPath:          fontPath,
		FontName:          name,
		NumGlyphs:         f.NumGlyphs(),
		Compatible:        true,
		CompatibilityRate: 100,
	}, nil
}

// Analyze checks the font against the runes used by text and any extra
// strings (typically the book title and author). Results are cached per
// font path and modification time.
func (c *Checker) Analyze(fontPath, text string, extra ...string) (*Report, error) {
	key := cacheKey(fontPath, text, extra)
	if key != "" {
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}
	}

	f, err := parseFontFile(fontPath)
	if err != nil {
		return nil, err
	}

	used := collectRunes(truncate(text, c.sampleSize), extra)

	var buf sfnt.Buffer
	var unsupported []rune
	for r := range used {
		gi, err := f.GlyphIndex(&buf, r)
		if err != nil || gi == 0 {
			unsupported = append(unsupported, r)
		}
	}

	name, err := f.Name(&buf, sfnt.NameIDFamily)
	if err != nil {
		name = filepath.Base(fontPath)
	}

	rate := 100.0
	if len(used) > 0 {
		rate = float64(len(used)-len(unsupported)) / float64(len(used)) * 100
	}

	sample := unsupported
	if len(sample) > UnsupportedSampleCap {
		sample = sample[:UnsupportedSampleCap]
	}

	report := &Report{
		FontPath:          fontPath,
		FontName:          name,
		NumGlyphs:         f.NumGlyphs(),
		TotalUsedChars:    len(used),
		UnsupportedCount:  len(unsupported),
		UnsupportedChars:  sample,
		Compatible:        len(unsupported) == 0,
		CompatibilityRate: rate,
		AnalyzedText:      true,
	}

	if key != "" {
		c.cache.Set(key, report, time.Hour)
	}
	return report, nil
}

// AnalyzeFile is Analyze with the text read from a file. The text is
// assumed to already be UTF-8 (decode it first via internal/encoding).
func (c *Checker) AnalyzeFile(fontPath, textPath string, extra ...string) (*Report, error) {
	data, err := os.ReadFile(textPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}
	return c.Analyze(fontPath, string(data), extra...)
}

// parseFontFile reads and parses a font file. TrueType collections are
// resolved to their first font.
func parseFontFile(path string) (*sfnt.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFont, path, err)
	}

	if isCollection(path, data) {
		coll, err := sfnt.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFont, path, err)
		}
		f, err := coll.Font(0)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFont, path, err)
		}
		return f, nil
	}

	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFont, path, err)
	}
	return f, nil
}

func isCollection(path string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		return true
	}
	return bytes.HasPrefix(data, []byte("ttcf"))
}

func collectRunes(text string, extra []string) map[rune]bool {
	used := make(map[rune]bool)
	add := func(s string) {
		for _, r := range s {
			if controlChars[r] {
				continue
			}
			used[r] = true
		}
	}
	add(text)
	for _, s := range extra {
		add(s)
	}
	return used
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	// Avoid cutting a rune in half.
	cut := max
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// cacheKey derives a cache key from the font's path and mtime plus a content
// hash of the analyzed text and extras. An empty key disables caching.
func cacheKey(fontPath, text string, extra []string) string {
	info, err := os.Stat(fontPath)
	if err != nil {
		return ""
	}
	h := fnv.New64a()
	h.Write([]byte(text))
	for _, s := range extra {
		h.Write([]byte{0})
		h.Write([]byte(s))
	}
	return fmt.Sprintf("%s_%d_%x", fontPath, info.ModTime().UnixNano(), h.Sum64())
}
