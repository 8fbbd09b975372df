// Package chapter locates chapter boundaries in source text using regular
// expression patterns, and splits the text into chapter spans along those
// boundaries. Matching is line oriented, the way the original web-novel
// sources are structured: a chapter starts at a line whose content matches
// the pattern.
package chapter

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrBadPattern indicates the chapter pattern does not compile as a regular
// expression. It is surfaced before any background work starts.
var ErrBadPattern = errors.New("chapter: invalid pattern")

// FrontMatterTitle is the title given to unmatched text before the first
// detected chapter.
const FrontMatterTitle = "앞부분"

// BodyTitle is the title used when no boundaries are found and the whole
// document becomes a single chapter.
const BodyTitle = "본문"

// Boundary marks the start of a chapter in the source text.
type Boundary struct {
	// Offset is the byte offset of the start of the matched line,
	// within [0, len(text)].
	Offset int
	// Line is the 1-based line number of the match.
	Line int
	// Title is the trimmed content of the matched line.
	Title string
	// Pattern is the name or expression of the pattern that matched.
	Pattern string
}

// Span is a chapter backed by a half-open byte range of the source text.
type Span struct {
	Title   string
	Start   int // inclusive
	End     int // exclusive
	Pattern string
}

// Pattern pairs a display name with a regular expression, mirroring the
// stored regex presets.
type Pattern struct {
	Name string
	Expr string
}

// Compile validates and compiles a chapter pattern.
// A non-compiling pattern yields a wrapped ErrBadPattern.
func Compile(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, expr, err)
	}
	return re, nil
}

// Find scans text line by line and returns a boundary for every non-blank
// line the pattern matches. Offsets are strictly increasing. A pattern that
// matches nothing yields an empty slice, not an error; the caller treats
// that as the whole document being one chapter.
func Find(text, expr string) ([]Boundary, error) {
	re, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return findCompiled(text, re, expr), nil
}

// FindAny applies each pattern in order and merges the boundaries.
// Patterns that do not compile are skipped, matching the original tool's
// behavior of walking the whole preset catalog. When two patterns match
// the same line, the earlier pattern in the list wins.
func FindAny(text string, patterns []Pattern) []Boundary {
	seen := make(map[int]bool)
	var merged []Boundary

	for _, p := range patterns {
		re, err := regexp.Compile(p.Expr)
		if err != nil {
			continue
		}
		for _, b := range findCompiled(text, re, p.Name) {
			if seen[b.Offset] {
				continue
			}
			seen[b.Offset] = true
			merged = append(merged, b)
		}
	}

	slices.SortFunc(merged, func(a, b Boundary) int {
		return a.Offset - b.Offset
	})
	return merged
}

func findCompiled(text string, re *regexp.Regexp, label string) []Boundary {
	var bounds []Boundary

	offset := 0
	lineNo := 0
	for offset <= len(text) {
		lineNo++
		end := strings.IndexByte(text[offset:], '\n')
		var line string
		next := len(text) + 1
		if end >= 0 {
			line = text[offset : offset+end]
			next = offset + end + 1
		} else {
			line = text[offset:]
		}

		content := strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(content)
		if trimmed != "" && re.MatchString(content) {
			bounds = append(bounds, Boundary{
				Offset:  offset,
				Line:    lineNo,
				Title:   trimmed,
				Pattern: label,
			})
		}

		if end < 0 {
			break
		}
		offset = next
	}

	return bounds
}

// Split materializes chapter spans from boundaries. Spans tile the text:
// each chapter runs from its boundary to the next boundary (or the end of
// the text). Non-blank text before the first boundary becomes a front
// matter chapter. With no boundaries the whole document is one chapter.
func Split(text string, bounds []Boundary) []Span {
	if len(bounds) == 0 {
		return []Span{{Title: BodyTitle, Start: 0, End: len(text)}}
	}

	var spans []Span
	if bounds[0].Offset > 0 && strings.TrimSpace(text[:bounds[0].Offset]) != "" {
		spans = append(spans, Span{
			Title: FrontMatterTitle,
			Start: 0,
			End:   bounds[0].Offset,
		})
	}

	for i, b := range bounds {
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1].Offset
		}
		spans = append(spans, Span{
			Title:   b.Title,
			Start:   b.Offset,
			End:     end,
			Pattern: b.Pattern,
		})
	}

	return spans
}
