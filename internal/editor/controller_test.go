package editor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/KongYongGun/epub-studio/internal/chapter"
	"github.com/KongYongGun/epub-studio/internal/epub"
	"github.com/KongYongGun/epub-studio/internal/font"
	"github.com/KongYongGun/epub-studio/internal/logger"
	"github.com/KongYongGun/epub-studio/internal/project"
	"github.com/KongYongGun/epub-studio/internal/store"
)

type testEnv struct {
	controller *Controller
	repo       *store.Repository
	notices    chan string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger.ResetForTesting()

	db, err := store.NewDatabase(filepath.Join(t.TempDir(), "test.db"), logger.Get())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		repo:    store.NewRepository(db, logger.Get()),
		notices: make(chan string, 100),
	}

	cb := Callbacks{
		OnNotify: func(severity Severity, message string) {
			select {
			case env.notices <- fmt.Sprintf("%s: %s", severity, message):
			default:
			}
		},
	}

	env.controller = New(
		project.New("테스트"),
		env.repo,
		epub.NewEmitter(logger.Get()),
		font.NewChecker(font.DefaultSampleSize),
		cb,
		logger.Get(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go env.controller.Run(ctx)
	t.Cleanup(cancel)

	return env
}

func (env *testEnv) dispatch(t *testing.T, a Action) {
	t.Helper()
	require.NoError(t, env.controller.Dispatch(context.Background(), a))
}

func (env *testEnv) waitFor(t *testing.T, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		s, err := env.controller.Inspect(context.Background())
		if err != nil {
			return false
		}
		snap = s
		return cond(s)
	}, 5*time.Second, 10*time.Millisecond)
	return snap
}

func (env *testEnv) waitNotice(t *testing.T, substr string) string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case n := <-env.notices:
			if strings.Contains(n, substr) {
				return n
			}
		case <-deadline:
			t.Fatalf("no notice containing %q", substr)
		}
	}
}

// writeUTF8Source writes the text with a BOM so encoding detection is
// deterministic.
func writeUTF8Source(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.txt")
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(text)...)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestController_SetMetadata(t *testing.T) {
	env := newTestEnv(t)

	env.dispatch(t, SetMetadata{Title: "새 제목", Author: "저자"})

	snap := env.waitFor(t, func(s Snapshot) bool {
		return s.Project.Title == "새 제목"
	})
	assert.Equal(t, "저자", snap.Project.Author)
}

func TestController_SetStyleRejectsBadAlignment(t *testing.T) {
	env := newTestEnv(t)

	env.dispatch(t, SetStyle{
		Style: project.StyleSettings{
			ChapterAlign: "diagonal",
			BodyAlign:    project.AlignLeft,
		},
	})
	env.waitNotice(t, "invalid alignment")

	snap, err := env.controller.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, project.AlignCenter, snap.Project.Style.ChapterAlign)
}

func TestController_DetectEncodingLoadsSource(t *testing.T) {
	env := newTestEnv(t)
	path := writeUTF8Source(t, "안녕하세요 독자 여러분\n")

	env.dispatch(t, DetectEncoding{Path: path})

	snap := env.waitFor(t, func(s Snapshot) bool {
		return s.SourceText != ""
	})
	assert.Equal(t, "UTF-8", snap.Project.Encoding)
	assert.Equal(t, path, snap.Project.SourcePath)
	assert.Equal(t, "안녕하세요 독자 여러분\n", snap.SourceText)
}

func TestController_DetectEncodingFailureLeavesProjectUntouched(t *testing.T) {
	env := newTestEnv(t)

	env.dispatch(t, DetectEncoding{Path: filepath.Join(t.TempDir(), "missing.txt")})
	env.waitNotice(t, "failed to read source")

	snap, err := env.controller.Inspect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Project.Encoding)
	assert.Empty(t, snap.Project.SourcePath)
	assert.Empty(t, snap.SourceText)
}

func TestController_DetectChaptersReplacesSequence(t *testing.T) {
	env := newTestEnv(t)
	path := writeUTF8Source(t, "1화 출발\n본문 첫 줄\n2화 도착\n본문 둘째 줄\n")

	env.dispatch(t, DetectEncoding{Path: path})
	env.waitFor(t, func(s Snapshot) bool { return s.SourceText != "" })

	env.dispatch(t, DetectChapters{Patterns: []string{`^\d+화`}})

	snap := env.waitFor(t, func(s Snapshot) bool {
		return len(s.Project.Chapters) == 2
	})
	assert.Equal(t, "1화 출발", snap.Project.Chapters[0].Title)
	assert.Equal(t, "2화 도착", snap.Project.Chapters[1].Title)

	// Re-running with a different pattern replaces, not appends.
	env.dispatch(t, DetectChapters{Patterns: []string{`^2화`}})
	snap = env.waitFor(t, func(s Snapshot) bool {
		return len(s.Project.Chapters) == 2 && s.Project.Chapters[0].Title == "앞부분"
	})
	assert.Equal(t, "2화 도착", snap.Project.Chapters[1].Title)
}

func TestController_DetectChaptersUsesSeededPresets(t *testing.T) {
	env := newTestEnv(t)
	path := writeUTF8Source(t, "제1장 시작\n본문이 이어진다\n제2장 전개\n본문이 이어진다\n")

	env.dispatch(t, DetectEncoding{Path: path})
	env.waitFor(t, func(s Snapshot) bool { return s.SourceText != "" })

	// No explicit patterns: the enabled preset catalog applies.
	env.dispatch(t, DetectChapters{})
	snap := env.waitFor(t, func(s Snapshot) bool {
		return len(s.Project.Chapters) >= 2
	})
	titles := make([]string, 0, len(snap.Project.Chapters))
	for _, c := range snap.Project.Chapters {
		titles = append(titles, c.Title)
	}
	assert.Contains(t, titles, "제1장 시작")
	assert.Contains(t, titles, "제2장 전개")
}

func TestController_DetectChaptersBadPatternIsSynchronous(t *testing.T) {
	env := newTestEnv(t)
	path := writeUTF8Source(t, "1화\n본문\n")

	env.dispatch(t, DetectEncoding{Path: path})
	env.waitFor(t, func(s Snapshot) bool { return s.SourceText != "" })

	env.dispatch(t, DetectChapters{Patterns: []string{`[unclosed`}})
	env.waitNotice(t, "invalid pattern")

	snap, err := env.controller.Inspect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Project.Chapters)
}

func TestController_DetectChaptersWithoutSource(t *testing.T) {
	env := newTestEnv(t)

	env.dispatch(t, DetectChapters{Patterns: []string{`^\d+화`}})
	env.waitNotice(t, "no source text loaded")
}

func TestController_CheckFont(t *testing.T) {
	env := newTestEnv(t)

	fontPath := filepath.Join(t.TempDir(), "regular.ttf")
	require.NoError(t, os.WriteFile(fontPath, goregular.TTF, 0644))

	path := writeUTF8Source(t, "plain latin text only\n")
	env.dispatch(t, DetectEncoding{Path: path})
	env.waitFor(t, func(s Snapshot) bool { return s.SourceText != "" })

	env.dispatch(t, SetMetadata{Title: "Latin Title", Author: "Author"})
	env.dispatch(t, CheckFont{FontPath: fontPath})

	snap := env.waitFor(t, func(s Snapshot) bool {
		return s.FontReport != nil
	})
	assert.True(t, snap.FontReport.Compatible)
	assert.Equal(t, float64(100), snap.FontReport.CompatibilityRate)
}

func TestController_ManualChapterEdits(t *testing.T) {
	env := newTestEnv(t)
	path := writeUTF8Source(t, "1화 시작\n본문 한 줄\n본문 두 줄\n")

	env.dispatch(t, DetectEncoding{Path: path})
	env.waitFor(t, func(s Snapshot) bool { return s.SourceText != "" })

	env.dispatch(t, DetectChapters{Patterns: []string{`^\d+화`}})
	env.waitFor(t, func(s Snapshot) bool { return len(s.Project.Chapters) == 1 })

	snap, err := env.controller.Inspect(context.Background())
	require.NoError(t, err)
	mid := snap.Project.Chapters[0].Start +
		(snap.Project.Chapters[0].End-snap.Project.Chapters[0].Start)/3*2

	env.dispatch(t, SplitChapter{Offset: mid, Title: "나뉜 부분"})
	snap = env.waitFor(t, func(s Snapshot) bool { return len(s.Project.Chapters) == 2 })
	assert.Equal(t, "나뉜 부분", snap.Project.Chapters[1].Title)

	env.dispatch(t, RenameChapter{Index: 0, Title: "고친 제목"})
	env.waitFor(t, func(s Snapshot) bool {
		return s.Project.Chapters[0].Title == "고친 제목"
	})

	env.dispatch(t, DeleteChapter{Index: 1})
	env.waitFor(t, func(s Snapshot) bool { return len(s.Project.Chapters) == 1 })

	env.dispatch(t, DeleteChapter{Index: 7})
	env.waitNotice(t, "no such chapter")
}

func TestController_SaveAndLoadProject(t *testing.T) {
	env := newTestEnv(t)

	env.dispatch(t, SetMetadata{Title: "저장 테스트", Author: "저자"})
	env.waitFor(t, func(s Snapshot) bool { return s.Project.Title == "저장 테스트" })

	env.dispatch(t, SaveProject{})
	env.waitNotice(t, "project saved")

	snap, err := env.controller.Inspect(context.Background())
	require.NoError(t, err)
	savedID := snap.Project.ID

	env.dispatch(t, SetMetadata{Title: "다른 제목"})
	env.waitFor(t, func(s Snapshot) bool { return s.Project.Title == "다른 제목" })

	env.dispatch(t, LoadProject{ProjectID: savedID})
	env.waitFor(t, func(s Snapshot) bool { return s.Project.Title == "저장 테스트" })
}

func TestController_LoadMissingProject(t *testing.T) {
	env := newTestEnv(t)

	env.dispatch(t, LoadProject{ProjectID: "missing"})
	env.waitNotice(t, "failed to load project")
}

func TestController_EmitRecordsBuild(t *testing.T) {
	env := newTestEnv(t)
	path := writeUTF8Source(t, "1화 출발\n충분히 긴 본문이 들어있는 첫 챕터의 내용이다.\n2화 도착\n충분히 긴 본문이 들어있는 둘째 챕터의 내용이다.\n")

	env.dispatch(t, DetectEncoding{Path: path})
	env.waitFor(t, func(s Snapshot) bool { return s.SourceText != "" })

	env.dispatch(t, SetMetadata{Author: "저자"})
	env.dispatch(t, DetectChapters{Patterns: []string{`^\d+화`}})
	env.waitFor(t, func(s Snapshot) bool { return len(s.Project.Chapters) == 2 })

	out := filepath.Join(t.TempDir(), "build.epub")
	env.dispatch(t, EmitEpub{OutputPath: out})
	env.waitNotice(t, "emitted 1 file")

	issues, err := epub.Validate(out)
	require.NoError(t, err)
	assert.Empty(t, issues)

	builds, err := env.repo.ListBuilds(0)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, out, builds[0].OutputFile)
	assert.Equal(t, 2, builds[0].ChapterCount)
}

func TestController_EmitWithoutSource(t *testing.T) {
	env := newTestEnv(t)

	env.dispatch(t, EmitEpub{OutputPath: filepath.Join(t.TempDir(), "x.epub")})
	env.waitNotice(t, "no source text loaded")
}

func TestController_CancelTaskKeepsLoopAlive(t *testing.T) {
	env := newTestEnv(t)

	env.dispatch(t, CancelTask{Task: TaskChapters})
	env.dispatch(t, SetMetadata{Title: "여전히 동작"})
	env.waitFor(t, func(s Snapshot) bool { return s.Project.Title == "여전히 동작" })
}

func TestController_DispatchAfterStop(t *testing.T) {
	logger.ResetForTesting()
	db, err := store.NewDatabase(filepath.Join(t.TempDir(), "test.db"), logger.Get())
	require.NoError(t, err)
	defer db.Close()

	c := New(
		project.New("stopped"),
		store.NewRepository(db, logger.Get()),
		epub.NewEmitter(logger.Get()),
		font.NewChecker(font.DefaultSampleSize),
		Callbacks{},
		logger.Get(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	// A stopped loop can still fail fast instead of blocking forever.
	err = c.Dispatch(context.Background(), SetMetadata{Title: "x"})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestController_SplitUsesChapterPackageSpans(t *testing.T) {
	env := newTestEnv(t)
	text := "머리말 내용\n1화 본편\n본문\n"
	path := writeUTF8Source(t, text)

	env.dispatch(t, DetectEncoding{Path: path})
	env.waitFor(t, func(s Snapshot) bool { return s.SourceText != "" })

	env.dispatch(t, DetectChapters{Patterns: []string{`^\d+화`}})
	snap := env.waitFor(t, func(s Snapshot) bool { return len(s.Project.Chapters) == 2 })

	// Leading unmatched text becomes the front matter chapter.
	assert.Equal(t, chapter.FrontMatterTitle, snap.Project.Chapters[0].Title)
	assert.Equal(t, 0, snap.Project.Chapters[0].Start)
	assert.NoError(t, snap.Project.ValidateChapters(len(snap.SourceText)))
}
