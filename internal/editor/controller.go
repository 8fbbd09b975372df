// Package editor hosts the interactive authoring loop. One goroutine owns
// the project and all store access; detections run on background task
// runners and hand results back over channels, so no mutex guards the
// project state.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/KongYongGun/epub-studio/internal/chapter"
	"github.com/KongYongGun/epub-studio/internal/encoding"
	"github.com/KongYongGun/epub-studio/internal/epub"
	"github.com/KongYongGun/epub-studio/internal/font"
	"github.com/KongYongGun/epub-studio/internal/logger"
	"github.com/KongYongGun/epub-studio/internal/project"
	"github.com/KongYongGun/epub-studio/internal/store"
	"github.com/KongYongGun/epub-studio/internal/task"
)

// ErrNotRunning reports a dispatch against a controller whose loop has
// stopped.
var ErrNotRunning = errors.New("controller is not running")

// Severity grades a notification.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Callbacks let a front-end observe the loop. Both may be nil. They are
// invoked from the loop goroutine and must not dispatch actions
// synchronously.
type Callbacks struct {
	// OnRefresh fires after every successful project mutation.
	OnRefresh func(Snapshot)
	// OnNotify surfaces failures and progress messages.
	OnNotify func(Severity, string)
}

// sourceLoad is what the encoding task produces: the detection result
// plus the already-decoded text.
type sourceLoad struct {
	path     string
	detected encoding.Result
	text     string
}

// Controller owns one project and serializes every mutation through its
// event loop.
type Controller struct {
	proj       *project.Project
	sourceText string
	fontReport *font.Report

	repo    *store.Repository
	emitter *epub.Emitter
	checker *font.Checker

	encodingRunner *task.Runner[sourceLoad]
	chapterRunner  *task.Runner[[]chapter.Span]
	fontRunner     *task.Runner[*font.Report]

	actions   chan Action
	handlers  map[ActionKind]func(Action)
	callbacks Callbacks
	logger    *logger.Logger

	runCtx context.Context
	done   chan struct{}
}

// New creates a controller around an initial project.
func New(proj *project.Project, repo *store.Repository, emitter *epub.Emitter, checker *font.Checker, cb Callbacks, log *logger.Logger) *Controller {
	c := &Controller{
		proj:           proj,
		repo:           repo,
		emitter:        emitter,
		checker:        checker,
		encodingRunner: task.NewRunner[sourceLoad](string(TaskEncoding)),
		chapterRunner:  task.NewRunner[[]chapter.Span](string(TaskChapters)),
		fontRunner:     task.NewRunner[*font.Report](string(TaskFont)),
		actions:        make(chan Action, 64),
		callbacks:      cb,
		logger:         log,
		done:           make(chan struct{}),
	}

	c.handlers = map[ActionKind]func(Action){
		KindSetMetadata:    c.handleSetMetadata,
		KindSetStyle:       c.handleSetStyle,
		KindDetectEncoding: c.handleDetectEncoding,
		KindDetectChapters: c.handleDetectChapters,
		KindCheckFont:      c.handleCheckFont,
		KindSplitChapter:   c.handleSplitChapter,
		KindDeleteChapter:  c.handleDeleteChapter,
		KindRenameChapter:  c.handleRenameChapter,
		KindCancelTask:     c.handleCancelTask,
		KindSaveProject:    c.handleSaveProject,
		KindLoadProject:    c.handleLoadProject,
		KindEmitEpub:       c.handleEmitEpub,
		KindInspect:        c.handleInspect,
	}
	return c
}

// Run drives the event loop until ctx is cancelled. It is the only
// goroutine that touches the project, the source text, or the store.
func (c *Controller) Run(ctx context.Context) {
	c.runCtx = ctx
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.encodingRunner.Cancel()
			c.chapterRunner.Cancel()
			c.fontRunner.Cancel()
			return
		case a := <-c.actions:
			c.handle(a)
		case res := <-c.encodingRunner.Results():
			c.applySourceLoad(res)
		case res := <-c.chapterRunner.Results():
			c.applyChapters(res)
		case res := <-c.fontRunner.Results():
			c.applyFontReport(res)
		}
	}
}

// Dispatch queues an action for the loop.
func (c *Controller) Dispatch(ctx context.Context, a Action) error {
	select {
	case <-c.done:
		return ErrNotRunning
	default:
	}
	select {
	case c.actions <- a:
		return nil
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inspect returns a copy of the current state, synchronized through the
// loop.
func (c *Controller) Inspect(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := c.Dispatch(ctx, inspect{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-c.done:
		return Snapshot{}, ErrNotRunning
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *Controller) handle(a Action) {
	h, ok := c.handlers[a.Kind()]
	if !ok {
		c.notify(SeverityError, fmt.Sprintf("no handler for action %q", a.Kind()))
		return
	}
	h(a)
}

func (c *Controller) handleSetMetadata(a Action) {
	m := a.(SetMetadata)
	if m.Title != "" {
		c.proj.Title = m.Title
	}
	if m.Author != "" {
		c.proj.Author = m.Author
	}
	if m.Publisher != "" {
		c.proj.Publisher = m.Publisher
	}
	c.refresh()
}

func (c *Controller) handleSetStyle(a Action) {
	s := a.(SetStyle)
	if !s.Style.ChapterAlign.Valid() || !s.Style.BodyAlign.Valid() {
		c.notify(SeverityError, "invalid alignment in style settings")
		return
	}
	c.proj.Style = s.Style
	c.proj.Margins = s.Margins
	c.refresh()
}

func (c *Controller) handleDetectEncoding(a Action) {
	d := a.(DetectEncoding)
	path := d.Path

	c.encodingRunner.Start(c.runCtx, func(ctx context.Context) (sourceLoad, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return sourceLoad{}, fmt.Errorf("failed to read source: %w", err)
		}

		sample := data
		if len(sample) > encoding.DefaultSampleSize {
			sample = sample[:encoding.DefaultSampleSize]
		}
		detected := encoding.Detect(sample)

		text := encoding.DecodeWithFallback(data, detected.Encoding)
		return sourceLoad{path: path, detected: detected, text: text}, nil
	})
}

func (c *Controller) handleDetectChapters(a Action) {
	d := a.(DetectChapters)
	if c.sourceText == "" {
		c.notify(SeverityError, "no source text loaded")
		return
	}

	patterns := make([]chapter.Pattern, 0, len(d.Patterns))
	for _, expr := range d.Patterns {
		// Explicit patterns are validated before any task starts.
		if _, err := chapter.Compile(expr); err != nil {
			c.notify(SeverityError, fmt.Sprintf("invalid pattern %q: %v", expr, err))
			return
		}
		patterns = append(patterns, chapter.Pattern{Name: expr, Expr: expr})
	}

	if len(patterns) == 0 {
		presets, err := c.repo.ListRegexPresets(true)
		if err != nil {
			c.notify(SeverityError, fmt.Sprintf("failed to load presets: %v", err))
			return
		}
		for _, preset := range presets {
			patterns = append(patterns, chapter.Pattern{Name: preset.Name, Expr: preset.Pattern})
		}
	}

	text := c.sourceText
	c.chapterRunner.Start(c.runCtx, func(ctx context.Context) ([]chapter.Span, error) {
		boundaries := chapter.FindAny(text, patterns)
		return chapter.Split(text, boundaries), nil
	})
}

func (c *Controller) handleCheckFont(a Action) {
	f := a.(CheckFont)
	if c.sourceText == "" {
		c.notify(SeverityError, "no source text loaded")
		return
	}

	path := f.FontPath
	text := c.sourceText
	title, author := c.proj.Title, c.proj.Author
	c.fontRunner.Start(c.runCtx, func(ctx context.Context) (*font.Report, error) {
		return c.checker.Analyze(path, text, title, author)
	})
}

func (c *Controller) handleSplitChapter(a Action) {
	s := a.(SplitChapter)
	if err := c.proj.SplitChapterAt(s.Offset, s.Title); err != nil {
		c.notify(SeverityError, err.Error())
		return
	}
	c.refresh()
}

func (c *Controller) handleDeleteChapter(a Action) {
	d := a.(DeleteChapter)
	if err := c.proj.DeleteChapter(d.Index); err != nil {
		c.notify(SeverityError, err.Error())
		return
	}
	c.refresh()
}

func (c *Controller) handleRenameChapter(a Action) {
	r := a.(RenameChapter)
	if err := c.proj.RenameChapter(r.Index, r.Title); err != nil {
		c.notify(SeverityError, err.Error())
		return
	}
	c.refresh()
}

func (c *Controller) handleCancelTask(a Action) {
	switch a.(CancelTask).Task {
	case TaskEncoding:
		c.encodingRunner.Cancel()
	case TaskChapters:
		c.chapterRunner.Cancel()
	case TaskFont:
		c.fontRunner.Cancel()
	}
}

func (c *Controller) handleSaveProject(Action) {
	if err := c.repo.SaveProject(c.proj); err != nil {
		c.notify(SeverityError, fmt.Sprintf("failed to save project: %v", err))
		return
	}
	c.notify(SeverityInfo, "project saved")
}

func (c *Controller) handleLoadProject(a Action) {
	l := a.(LoadProject)
	loaded, err := c.repo.GetProject(l.ProjectID)
	if err != nil {
		c.notify(SeverityError, fmt.Sprintf("failed to load project: %v", err))
		return
	}

	c.proj = loaded
	c.sourceText = ""
	c.fontReport = nil

	if loaded.SourcePath != "" {
		data, err := os.ReadFile(loaded.SourcePath)
		if err != nil {
			c.notify(SeverityError, fmt.Sprintf("source file unavailable: %v", err))
		} else {
			c.sourceText = encoding.DecodeWithFallback(data, loaded.Encoding)
		}
	}
	c.refresh()
}

func (c *Controller) handleEmitEpub(a Action) {
	e := a.(EmitEpub)
	if c.sourceText == "" {
		c.notify(SeverityError, "no source text loaded")
		return
	}
	if err := c.proj.ValidateChapters(len(c.sourceText)); err != nil {
		c.notify(SeverityError, err.Error())
		return
	}

	start := time.Now()
	paths, err := c.emitter.Emit(c.proj, c.sourceText, e.OutputPath)
	if err != nil {
		c.notify(SeverityError, fmt.Sprintf("failed to emit: %v", err))
		return
	}

	duration := time.Since(start)
	for _, path := range paths {
		record := &store.BuildRecord{
			ProjectID:    c.proj.ID,
			OutputFile:   path,
			Title:        c.proj.Title,
			Author:       c.proj.Author,
			ChapterCount: len(c.proj.Chapters),
			Duration:     duration,
		}
		if err := c.repo.RecordBuild(record); err != nil {
			c.notify(SeverityError, fmt.Sprintf("failed to record build: %v", err))
		}
	}
	c.notify(SeverityInfo, fmt.Sprintf("emitted %d file(s)", len(paths)))
}

func (c *Controller) handleInspect(a Action) {
	in := a.(inspect)
	in.reply <- c.snapshot()
}

func (c *Controller) applySourceLoad(res task.Result[sourceLoad]) {
	if res.Err != nil {
		c.logger.Error("Source load failed", map[string]interface{}{
			"error": res.Err.Error(),
		})
		c.notify(SeverityError, res.Err.Error())
		return
	}

	c.proj.SourcePath = res.Value.path
	c.proj.Encoding = res.Value.detected.Encoding
	c.sourceText = res.Value.text

	c.logger.Info("Source loaded", map[string]interface{}{
		"path":       res.Value.path,
		"encoding":   res.Value.detected.Encoding,
		"confidence": res.Value.detected.Confidence,
		"characters": len([]rune(res.Value.text)),
	})
	if res.Value.detected.Inconclusive() {
		c.notify(SeverityInfo, fmt.Sprintf("encoding detection inconclusive, assumed %s", res.Value.detected.Encoding))
	}
	c.refresh()
}

func (c *Controller) applyChapters(res task.Result[[]chapter.Span]) {
	if res.Err != nil {
		c.notify(SeverityError, res.Err.Error())
		return
	}

	// Re-detection replaces the whole sequence.
	c.proj.SetChapters(res.Value)
	c.logger.Info("Chapters detected", map[string]interface{}{
		"count": len(res.Value),
	})
	c.refresh()
}

func (c *Controller) applyFontReport(res task.Result[*font.Report]) {
	if res.Err != nil {
		c.notify(SeverityError, res.Err.Error())
		return
	}

	c.fontReport = res.Value
	c.logger.Info("Font analyzed", map[string]interface{}{
		"font":        res.Value.FontName,
		"compatible":  res.Value.Compatible,
		"rate":        res.Value.CompatibilityRate,
		"unsupported": res.Value.UnsupportedCount,
	})
	c.refresh()
}

func (c *Controller) snapshot() Snapshot {
	copied := *c.proj
	copied.Chapters = append([]project.Chapter(nil), c.proj.Chapters...)
	return Snapshot{
		Project:    copied,
		SourceText: c.sourceText,
		FontReport: c.fontReport,
	}
}

func (c *Controller) refresh() {
	if c.callbacks.OnRefresh != nil {
		c.callbacks.OnRefresh(c.snapshot())
	}
}

func (c *Controller) notify(severity Severity, message string) {
	if c.callbacks.OnNotify != nil {
		c.callbacks.OnNotify(severity, message)
	}
	if severity == SeverityError {
		c.logger.Warn("Notification", map[string]interface{}{
			"message": message,
		})
	}
}
