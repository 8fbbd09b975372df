package font

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func writeTestFont(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goregular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0644))
	return path
}

func TestCheck_ValidFont(t *testing.T) {
	c := NewChecker(0)

	report, err := c.Check(writeTestFont(t))
	require.NoError(t, err)

	assert.True(t, report.Compatible)
	assert.Greater(t, report.NumGlyphs, 0)
	assert.NotEmpty(t, report.FontName)
	assert.Equal(t, 100.0, report.CompatibilityRate)
}

func TestCheck_TextFileIsNotAFont(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.ttf")
	require.NoError(t, os.WriteFile(path, []byte("this is just text"), 0644))

	c := NewChecker(0)
	_, err := c.Check(path)
	assert.ErrorIs(t, err, ErrUnreadableFont)
}

func TestCheck_MissingFile(t *testing.T) {
	c := NewChecker(0)
	_, err := c.Check(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.ErrorIs(t, err, ErrUnreadableFont)
}

func TestAnalyze_LatinTextIsCovered(t *testing.T) {
	c := NewChecker(0)

	report, err := c.Analyze(writeTestFont(t), "The quick brown fox jumps over the lazy dog.")
	require.NoError(t, err)

	assert.True(t, report.Compatible)
	assert.Zero(t, report.UnsupportedCount)
	assert.Equal(t, 100.0, report.CompatibilityRate)
	assert.True(t, report.AnalyzedText)
	assert.Greater(t, report.TotalUsedChars, 0)
}

func TestAnalyze_HangulIsNotCoveredByGoRegular(t *testing.T) {
	c := NewChecker(0)

	report, err := c.Analyze(writeTestFont(t), "서장\n안녕하세요, 독자 여러분.")
	require.NoError(t, err)

	assert.False(t, report.Compatible)
	assert.Greater(t, report.UnsupportedCount, 0)
	assert.Less(t, report.CompatibilityRate, 100.0)
	assert.NotEmpty(t, report.UnsupportedChars)
	assert.LessOrEqual(t, len(report.UnsupportedChars), UnsupportedSampleCap)
}

func TestAnalyze_ExtraStringsAreIncluded(t *testing.T) {
	c := NewChecker(0)

	// ASCII body but a Korean title: the title characters must count.
	report, err := c.Analyze(writeTestFont(t), "plain body", "소설 제목", "작가")
	require.NoError(t, err)

	assert.False(t, report.Compatible)
	assert.Greater(t, report.UnsupportedCount, 0)
}

func TestAnalyze_ControlCharsExcluded(t *testing.T) {
	c := NewChecker(0)

	report, err := c.Analyze(writeTestFont(t), "a\n\r\t \u200b\ufeffb")
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalUsedChars)
	assert.True(t, report.Compatible)
}

func TestAnalyze_CachesByPathAndMtime(t *testing.T) {
	c := NewChecker(0)
	path := writeTestFont(t)

	first, err := c.Analyze(path, "hello")
	require.NoError(t, err)
	second, err := c.Analyze(path, "hello")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestAnalyze_SameLengthTextsDoNotCollide(t *testing.T) {
	c := NewChecker(0)
	path := writeTestFont(t)

	// "abcdef" and "한글" are both 6 bytes; the second must not be served
	// from the first's cache entry.
	latin, err := c.Analyze(path, "abcdef")
	require.NoError(t, err)
	assert.True(t, latin.Compatible)

	hangul, err := c.Analyze(path, "한글")
	require.NoError(t, err)
	assert.False(t, hangul.Compatible)
	assert.Greater(t, hangul.UnsupportedCount, 0)
}

func TestAnalyze_SameLengthExtrasDoNotCollide(t *testing.T) {
	c := NewChecker(0)
	path := writeTestFont(t)

	first, err := c.Analyze(path, "body", "title", "by")
	require.NoError(t, err)
	assert.True(t, first.Compatible)

	second, err := c.Analyze(path, "body", "제목과제", "저자")
	require.NoError(t, err)
	assert.False(t, second.Compatible)
}

func TestAnalyzeFile(t *testing.T) {
	c := NewChecker(0)
	textPath := filepath.Join(t.TempDir(), "body.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("abc def"), 0644))

	report, err := c.AnalyzeFile(writeTestFont(t), textPath)
	require.NoError(t, err)
	assert.True(t, report.Compatible)
}

func TestTruncate_DoesNotSplitRunes(t *testing.T) {
	s := "가나다라마바사"
	cut := truncate(s, 7) // mid-rune boundary
	for _, r := range cut {
		assert.NotEqual(t, '�', r)
	}
}
