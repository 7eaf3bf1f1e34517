// Package pipeline runs export passes: it selects records from the content
// store and takes each one, strictly in order, through extraction, rendering,
// frontmatter assembly, asset localization, file write and status
// write-back.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/notionsite/internal/apperr"
	"github.com/starford/notionsite/internal/assets"
	"github.com/starford/notionsite/internal/frontmatter"
	"github.com/starford/notionsite/internal/metrics"
	"github.com/starford/notionsite/internal/models"
	"github.com/starford/notionsite/internal/naming"
	"github.com/starford/notionsite/internal/notion"
	"github.com/starford/notionsite/internal/record"
	"github.com/starford/notionsite/internal/relation"
)

// Stages a record can fail in.
const (
	StageExtract      = "extract"
	StageRender       = "render"
	StageLocalize     = "localize"
	StageWrite        = "write"
	StageStatusUpdate = "status_update"
)

// Selector queries the content store for the records of a pass.
type Selector interface {
	Select(ctx context.Context, q notion.Query) ([]record.Page, error)
}

// Renderer produces the markdown body of a record.
type Renderer interface {
	Render(ctx context.Context, id string) (string, error)
}

// StatusWriter reports an exported record back to the content store.
type StatusWriter interface {
	WriteStatus(ctx context.Context, u notion.StatusUpdate) error
}

// Writer stores generated files under the site root.
type Writer interface {
	Write(path string, content []byte) error
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Selector Selector
	Renderer Renderer
	Pages    relation.PageFetcher
	Fetcher  assets.Fetcher
	Status   StatusWriter
	Store    Writer
	// AssetRoot is prepended to asset download directories.
	AssetRoot string
	Slugger   naming.Slugger
	Metrics   metrics.Recorder
	Logger    *slog.Logger
	// Observer, when set, receives pass and record events.
	Observer Observer
}

// Pipeline runs passes. One Pipeline must not run two passes concurrently.
type Pipeline struct {
	deps Deps
}

// New returns a Pipeline, filling in a no-op recorder and the default
// logger when absent.
func New(deps Deps) *Pipeline {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{deps: deps}
}

// Run executes one pass over c. The returned pass lists every record
// outcome. The error is non-nil only when the pass itself could not run:
// selection failed (apperr.ErrSelection) or ctx was cancelled.
func (p *Pipeline) Run(ctx context.Context, c Collection) (*models.Pass, error) {
	pass := &models.Pass{
		ID:         uuid.NewString(),
		Collection: c.PostType,
		Status:     models.PassRunning,
		StartedAt:  time.Now().UTC(),
	}
	logger := p.deps.Logger.With(slog.String("pass_id", pass.ID), slog.String("collection", c.PostType))
	p.emit(Event{Type: EventPassStarted, Pass: snapshot(pass)})

	pages, err := p.deps.Selector.Select(ctx, c.Query())
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", apperr.ErrSelection, c.PostType, err)
		logger.Error("selection failed", slog.String("error", err.Error()))
		return p.finish(pass, c, err), err
	}
	pass.Selected = len(pages)

	if len(pages) == 0 {
		logger.Info(fmt.Sprintf("No updates in %s", c.PostType))
		return p.finish(pass, c, nil), nil
	}
	logger.Info("records selected", slog.Int("count", len(pages)))

	seen := make(map[string]bool, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			logger.Warn("pass cancelled", slog.String("error", err.Error()))
			return p.finish(pass, c, err), err
		}
		if id, _ := page["id"].(string); id != "" {
			if seen[id] {
				logger.Warn("duplicate record in selection skipped", slog.String("record_id", id))
				continue
			}
			seen[id] = true
		}

		out := p.process(ctx, c, page, logger)
		out.PassID = pass.ID
		pass.Records = append(pass.Records, out)
		if out.Succeeded() {
			pass.Succeeded++
			p.deps.Metrics.IncRecordOutcome(c.PostType, metrics.OutcomeSuccess)
		} else {
			pass.Failed++
			p.deps.Metrics.IncRecordOutcome(c.PostType, metrics.OutcomeFailed)
			p.deps.Metrics.IncRecordFailure(c.PostType, out.Stage)
		}
		o := out
		p.emit(Event{Type: EventRecordFinished, Pass: snapshot(pass), Record: &o})
	}

	return p.finish(pass, c, nil), nil
}

func (p *Pipeline) finish(pass *models.Pass, c Collection, err error) *models.Pass {
	now := time.Now().UTC()
	pass.FinishedAt = &now
	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		pass.Status = models.PassAborted
		pass.Error = err.Error()
		outcome = metrics.OutcomeFailed
	default:
		pass.Status = models.PassCompleted
		if pass.Failed > 0 {
			outcome = metrics.OutcomeFailed
		}
	}
	p.deps.Metrics.ObservePassDuration(c.PostType, now.Sub(pass.StartedAt))
	p.deps.Metrics.IncPassOutcome(c.PostType, outcome)

	p.deps.Logger.Info("pass finished",
		slog.String("pass_id", pass.ID),
		slog.String("collection", c.PostType),
		slog.String("status", pass.Status),
		slog.Int("selected", pass.Selected),
		slog.Int("succeeded", pass.Succeeded),
		slog.Int("failed", pass.Failed))
	p.emit(Event{Type: EventPassFinished, Pass: snapshot(pass)})
	return pass
}

// process takes one record through every stage. It never returns early
// without setting State; a failure stops the record at the failing stage.
func (p *Pipeline) process(ctx context.Context, c Collection, page record.Page, logger *slog.Logger) models.RecordOutcome {
	id, _ := page["id"].(string)
	out := models.RecordOutcome{RecordID: id, State: models.StateSelected}
	logger = logger.With(slog.String("record_id", id))

	fail := func(stage string, err error) models.RecordOutcome {
		serr := &apperr.StageError{RecordID: id, Stage: stage, Err: err}
		out.State = models.StateFailed
		out.Stage = stage
		out.Error = serr.Error()
		logger.Error("record failed", slog.String("stage", stage), slog.String("error", err.Error()))
		return out
	}

	rec, err := record.Extract(page, c.ExtractSpec())
	if err != nil {
		return fail(StageExtract, err)
	}
	out.Title = rec.Title
	slug := p.deps.Slugger.Slug(rec.Title)
	if slug == "" {
		return fail(StageExtract, fmt.Errorf("%w: title %q yields an empty slug", apperr.ErrRecordInvalid, rec.Title))
	}
	out.State = models.StateExtracted

	body, err := p.deps.Renderer.Render(ctx, rec.ID)
	if err != nil {
		return fail(StageRender, fmt.Errorf("%w: %v", apperr.ErrRender, err))
	}
	out.State = models.StateRendered

	mdPath := c.MarkdownPath(slug, rec.Date)
	urlPath := naming.URLPath(c.Permalink, c.PostType, slug, rec.CustomSlug, rec.Date)
	out.Path = mdPath

	asm := &frontmatter.Assembler{
		TitleField:   c.Required.Title,
		Groups:       c.Optional,
		AddPermalink: c.Permalink.Add,
		Relations: &relation.Resolver{
			Pages:      p.deps.Pages,
			TitleField: c.Required.Title,
			SlugField:  c.Permalink.SlugField,
			DateField:  c.Optional.Date,
			DatePrefix: c.Paths.DatePrefix,
			Slugger:    p.deps.Slugger,
		},
	}
	fm := asm.Assemble(ctx, rec, urlPath)
	for _, f := range fm.RelationFailures {
		logger.Warn("relation unresolved",
			slog.String("field", f.Field),
			slog.String("relation_id", f.ID),
			slog.String("error", f.Err.Error()))
		p.deps.Metrics.IncRelationFailure(c.PostType)
	}
	out.RelationsFailed = len(fm.RelationFailures)
	out.State = models.StateAssembled

	loc := &assets.Localizer{
		Root:    p.deps.AssetRoot,
		Config:  c.Assets,
		Fetcher: p.deps.Fetcher,
		Logger:  logger,
	}
	doc := assets.Normalize(frontmatter.Document(fm.Header, body))
	res := loc.Localize(ctx, doc, slug, rec.Date)
	for _, l := range res.Localized {
		p.deps.Metrics.IncAssetResult(string(l.Kind), metrics.OutcomeSuccess)
	}
	for _, f := range res.Failures {
		p.deps.Metrics.IncAssetResult(string(f.Kind), metrics.OutcomeFailed)
		out.AssetFailures = append(out.AssetFailures, models.AssetFailure{
			Kind:  string(f.Kind),
			URL:   f.URL,
			Error: f.Err.Error(),
		})
	}
	out.AssetsLocalized = len(res.Localized)
	out.State = models.StateLocalized
	if err := ctx.Err(); err != nil {
		return fail(StageLocalize, err)
	}

	if err := p.deps.Store.Write(mdPath, []byte(res.Text)); err != nil {
		return fail(StageWrite, fmt.Errorf("%w: %s: %v", apperr.ErrWrite, mdPath, err))
	}
	out.State = models.StateWritten
	logger.Info("markdown written", slog.String("path", mdPath))

	update := notion.StatusUpdate{
		PageID:            rec.ID,
		StatusProperty:    c.Required.Status,
		StatusType:        c.Required.StatusType,
		Value:             c.StatusValues.Update,
		PermalinkProperty: c.PermalinkProperty(),
		Permalink:         urlPath,
	}
	if err := p.deps.Status.WriteStatus(ctx, update); err != nil {
		return fail(StageStatusUpdate, fmt.Errorf("%w: %v", apperr.ErrStatusUpdate, err))
	}
	out.State = models.StateStatusUpdated
	return out
}

// IsSelectionError reports whether err aborted a pass at selection.
func IsSelectionError(err error) bool {
	return errors.Is(err, apperr.ErrSelection)
}
