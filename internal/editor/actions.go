package editor

import (
	"github.com/KongYongGun/epub-studio/internal/font"
	"github.com/KongYongGun/epub-studio/internal/project"
)

// ActionKind routes an action to its handler in the dispatch table.
type ActionKind string

const (
	KindSetMetadata    ActionKind = "set_metadata"
	KindSetStyle       ActionKind = "set_style"
	KindDetectEncoding ActionKind = "detect_encoding"
	KindDetectChapters ActionKind = "detect_chapters"
	KindCheckFont      ActionKind = "check_font"
	KindSplitChapter   ActionKind = "split_chapter"
	KindDeleteChapter  ActionKind = "delete_chapter"
	KindRenameChapter  ActionKind = "rename_chapter"
	KindCancelTask     ActionKind = "cancel_task"
	KindSaveProject    ActionKind = "save_project"
	KindLoadProject    ActionKind = "load_project"
	KindEmitEpub       ActionKind = "emit_epub"
	KindInspect        ActionKind = "inspect"
)

// Action is a request handled by the controller's event loop.
type Action interface {
	Kind() ActionKind
}

// SetMetadata updates the project's bibliographic fields.
type SetMetadata struct {
	Title     string
	Author    string
	Publisher string
}

func (SetMetadata) Kind() ActionKind { return KindSetMetadata }

// SetStyle updates style settings and margins.
type SetStyle struct {
	Style   project.StyleSettings
	Margins project.Margins
}

func (SetStyle) Kind() ActionKind { return KindSetStyle }

// DetectEncoding loads the source file in the background, detects its
// encoding, and decodes it to UTF-8.
type DetectEncoding struct {
	Path string
}

func (DetectEncoding) Kind() ActionKind { return KindDetectEncoding }

// DetectChapters scans the decoded source text for chapter boundaries.
// With no Patterns, the enabled preset catalog is used.
type DetectChapters struct {
	Patterns []string
}

func (DetectChapters) Kind() ActionKind { return KindDetectChapters }

// CheckFont analyzes a font against the decoded source text.
type CheckFont struct {
	FontPath string
}

func (CheckFont) Kind() ActionKind { return KindCheckFont }

// SplitChapter splits the chapter containing Offset.
type SplitChapter struct {
	Offset int
	Title  string
}

func (SplitChapter) Kind() ActionKind { return KindSplitChapter }

// DeleteChapter removes a chapter, merging its span into a neighbor.
type DeleteChapter struct {
	Index int
}

func (DeleteChapter) Kind() ActionKind { return KindDeleteChapter }

// RenameChapter retitles a chapter.
type RenameChapter struct {
	Index int
	Title string
}

func (RenameChapter) Kind() ActionKind { return KindRenameChapter }

// TaskKind names one of the controller's background task runners.
type TaskKind string

const (
	TaskEncoding TaskKind = "encoding"
	TaskChapters TaskKind = "chapters"
	TaskFont     TaskKind = "font"
)

// CancelTask cancels a running background task.
type CancelTask struct {
	Task TaskKind
}

func (CancelTask) Kind() ActionKind { return KindCancelTask }

// SaveProject persists the project and its chapters.
type SaveProject struct{}

func (SaveProject) Kind() ActionKind { return KindSaveProject }

// LoadProject replaces the working project with a stored one and reloads
// its source text.
type LoadProject struct {
	ProjectID string
}

func (LoadProject) Kind() ActionKind { return KindLoadProject }

// EmitEpub writes the project to one or more EPUB files and records the
// build in history.
type EmitEpub struct {
	OutputPath string
}

func (EmitEpub) Kind() ActionKind { return KindEmitEpub }

// inspect requests a copy of the current state, for race-free reads from
// outside the loop.
type inspect struct {
	reply chan Snapshot
}

func (inspect) Kind() ActionKind { return KindInspect }

// Snapshot is a copy of the controller state at one loop iteration. The
// font report pointer is shared but never mutated after analysis.
type Snapshot struct {
	Project    project.Project
	SourceText string
	FontReport *font.Report
}
