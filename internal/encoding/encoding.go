// Package encoding detects the character encoding of source text files and
// decodes them to UTF-8. Detection is advisory: it always produces a label
// and a confidence, falling back to a low-confidence single-byte default
// when the detector is inconclusive.
package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

// DefaultSampleSize is how many leading bytes DetectFile reads.
const DefaultSampleSize = 8 * 1024

// FallbackEncoding is returned when detection is inconclusive. A single-byte
// encoding can decode any byte sequence, so it is always a usable default.
const FallbackEncoding = "windows-1252"

// Result is the outcome of an encoding detection run.
type Result struct {
	// Encoding is the detected charset label, e.g. "UTF-8" or "EUC-KR".
	Encoding string
	// Confidence is in [0, 1]. It is advisory only; the caller decides
	// the threshold for auto-applying versus prompting the user.
	Confidence float64
	// Language is the detected language hint, if any (e.g. "ko").
	Language string
}

// Inconclusive reports whether the result fell back to the default label.
func (r Result) Inconclusive() bool {
	return r.Confidence == 0
}

// Detect guesses the text encoding of data. It never fails: malformed or
// empty input yields the fallback encoding with zero confidence.
func Detect(data []byte) Result {
	if len(data) == 0 {
		return Result{Encoding: FallbackEncoding, Confidence: 0}
	}

	// Byte order marks are unambiguous.
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return Result{Encoding: "UTF-8", Confidence: 1}
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return Result{Encoding: "UTF-16LE", Confidence: 1}
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return Result{Encoding: "UTF-16BE", Confidence: 1}
	}

	best, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || best == nil || best.Charset == "" {
		return Result{Encoding: FallbackEncoding, Confidence: 0}
	}

	confidence := float64(best.Confidence) / 100
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Result{
		Encoding:   best.Charset,
		Confidence: confidence,
		Language:   best.Language,
	}
}

// DetectFile reads up to sampleSize leading bytes of the file at path and
// runs Detect on them. sampleSize <= 0 uses DefaultSampleSize.
func DetectFile(path string, sampleSize int) (Result, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open text file: %w", err)
	}
	defer f.Close()

	sample := make([]byte, sampleSize)
	n, err := io.ReadFull(f, sample)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Result{}, fmt.Errorf("failed to read text file: %w", err)
	}

	return Detect(sample[:n]), nil
}

// Decode converts data from the named encoding to a UTF-8 string.
// An unknown label is an error; decoding itself substitutes U+FFFD for
// bytes that are invalid in the source encoding.
func Decode(data []byte, label string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))

	switch normalized {
	case "", "utf-8", "utf8", "ascii", "us-ascii":
		return string(stripUTF8BOM(data)), nil
	case "cp949", "uhc", "ks_c_5601-1987":
		// The x/text EUC-KR tables cover the CP949 extension range.
		normalized = "euc-kr"
	case "utf-16le":
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode %s: %w", label, err)
		}
		return string(out), nil
	case "utf-16be":
		dec := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode %s: %w", label, err)
		}
		return string(out), nil
	case "latin-1", "latin1", "iso-8859-1":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode %s: %w", label, err)
		}
		return string(out), nil
	}

	enc, err := htmlindex.Get(normalized)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", label, err)
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", label, err)
	}
	return string(out), nil
}

// DecodeWithFallback decodes data using label, then walks the original
// tool's fallback chain (EUC-KR, CP949, Latin-1) when the primary decode
// produces replacement characters. Latin-1 accepts any byte sequence, so
// this always succeeds.
func DecodeWithFallback(data []byte, label string) string {
	if out, err := Decode(data, label); err == nil && cleanDecode(out) {
		return out
	}

	if out, err := korean.EUCKR.NewDecoder().Bytes(data); err == nil && cleanDecode(string(out)) {
		return string(out)
	}

	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(out)
}

// cleanDecode reports whether a decoded string is free of replacement runes.
func cleanDecode(s string) bool {
	return !strings.ContainsRune(s, '�')
}

func stripUTF8BOM(data []byte) []byte {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return data[3:]
	}
	return data
}
