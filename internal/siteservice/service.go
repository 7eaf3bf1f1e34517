// Package siteservice coordinates export passes with the ledger, the site
// tree and event subscribers. The HTTP API, the MCP server and the CLI all
// go through it.
package siteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/notionsite/internal/apperr"
	"github.com/starford/notionsite/internal/assets"
	"github.com/starford/notionsite/internal/ledger"
	"github.com/starford/notionsite/internal/models"
	"github.com/starford/notionsite/internal/naming"
	"github.com/starford/notionsite/internal/parser"
	"github.com/starford/notionsite/internal/pipeline"
	"github.com/starford/notionsite/internal/sse"
	"github.com/starford/notionsite/internal/storage"
)

// Runner executes one pass over a collection.
type Runner interface {
	Run(ctx context.Context, c pipeline.Collection) (*models.Pass, error)
}

// Publisher receives events for subscribers.
type Publisher interface {
	Publish(e sse.Event)
	PublishOutputEvent(kind, path string)
}

// Options configures a Service.
type Options struct {
	Collections []pipeline.Collection
	Runner      Runner
	Store       storage.Provider
	Ledger      ledger.Ledger
	// OutputDir receives asset passthrough copies after a pass. Empty
	// disables passthrough.
	OutputDir string
	Publisher Publisher
	Logger    *slog.Logger
}

// OutputDetail is the full representation of a generated file.
type OutputDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Permalink   string         `json:"permalink,omitempty"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Assets      []parser.Link  `json:"assets"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Service runs passes one at a time and serves the pass history and the
// output index.
type Service struct {
	collections []pipeline.Collection
	runner      Runner
	store       storage.Provider
	db          ledger.Ledger
	outputDir   string
	pub         Publisher
	logger      *slog.Logger

	running sync.Mutex
	bg      sync.WaitGroup
}

// New creates a service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		collections: opts.Collections,
		runner:      opts.Runner,
		store:       opts.Store,
		db:          opts.Ledger,
		outputDir:   opts.OutputDir,
		pub:         opts.Publisher,
		logger:      logger,
	}
}

// Collections returns the configured post types in configuration order.
func (s *Service) Collections() []string {
	names := make([]string, len(s.collections))
	for i, c := range s.collections {
		names[i] = c.PostType
	}
	return names
}

// CollectionConfigs returns the configured collections.
func (s *Service) CollectionConfigs() []pipeline.Collection {
	return s.collections
}

// Collection returns the configuration of a post type.
func (s *Service) Collection(name string) (pipeline.Collection, error) {
	for _, c := range s.collections {
		if c.PostType == name {
			return c, nil
		}
	}
	return pipeline.Collection{}, fmt.Errorf("%w: %q", apperr.ErrUnknownCollection, name)
}

// Sources returns the markdown directory and title key of every collection.
func (s *Service) Sources() []ledger.Source {
	out := make([]ledger.Source, len(s.collections))
	for i, c := range s.collections {
		out[i] = ledger.Source{Dir: c.Paths.Markdown, TitleKey: naming.Camelize(c.Required.Title)}
	}
	return out
}

// RunPass runs a pass over one collection and waits for it. It fails with
// apperr.ErrPassRunning when another pass holds the service.
func (s *Service) RunPass(ctx context.Context, collection string) (*models.Pass, error) {
	c, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}
	if !s.running.TryLock() {
		return nil, apperr.ErrPassRunning
	}
	defer s.running.Unlock()
	return s.run(ctx, c)
}

// StartPass starts a pass in the background and returns once it holds the
// service. The pass is not cancelled with ctx.
func (s *Service) StartPass(ctx context.Context, collection string) error {
	c, err := s.Collection(collection)
	if err != nil {
		return err
	}
	if !s.running.TryLock() {
		return apperr.ErrPassRunning
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer s.running.Unlock()
		_, _ = s.run(context.WithoutCancel(ctx), c)
	}()
	return nil
}

// RunAll runs every collection in configuration order. A collection whose
// selection fails does not stop the others; the errors are joined.
func (s *Service) RunAll(ctx context.Context) ([]*models.Pass, error) {
	if !s.running.TryLock() {
		return nil, apperr.ErrPassRunning
	}
	defer s.running.Unlock()

	var (
		passes []*models.Pass
		errs   []error
	)
	for _, c := range s.collections {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		p, err := s.run(ctx, c)
		if p != nil {
			passes = append(passes, p)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return passes, errors.Join(errs...)
}

// Wait blocks until background passes have finished.
func (s *Service) Wait() {
	s.bg.Wait()
}

func (s *Service) run(ctx context.Context, c pipeline.Collection) (*models.Pass, error) {
	pass, err := s.runner.Run(ctx, c)
	if pass == nil {
		return nil, err
	}
	if saveErr := s.db.SavePass(pass); saveErr != nil {
		s.logger.Error("ledger: save pass failed", slog.String("pass_id", pass.ID), slog.String("error", saveErr.Error()))
	}

	titleKey := naming.Camelize(c.Required.Title)
	for _, r := range pass.Records {
		if fileWritten(r) {
			s.indexOutput(r.Path, titleKey)
		}
	}

	if err == nil && s.outputDir != "" {
		copied, cpErr := assets.Passthrough(c.Assets, s.store.Root(), s.outputDir)
		if cpErr != nil {
			s.logger.Warn("asset passthrough failed", slog.String("collection", c.PostType), slog.String("error", cpErr.Error()))
		} else if len(copied) > 0 {
			s.logger.Info("assets copied to output", slog.String("collection", c.PostType), slog.Any("dirs", copied))
		}
	}
	return pass, err
}

// fileWritten reports whether the record's markdown file reached disk.
func fileWritten(r models.RecordOutcome) bool {
	switch {
	case r.Path == "":
		return false
	case r.State == models.StateWritten, r.State == models.StateStatusUpdated:
		return true
	default:
		return r.State == models.StateFailed && r.Stage == pipeline.StageStatusUpdate
	}
}

// indexOutput refreshes the index entry of a file written by a pass.
func (s *Service) indexOutput(p, titleKey string) {
	data, err := s.store.Read(p)
	if err != nil {
		s.logger.Warn("index: read output failed", slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	prev, _ := s.db.GetChecksum(p)
	if prev == storage.Checksum(data) {
		return
	}
	if err := ledger.IndexFile(s.db, p, data, titleKey); err != nil {
		s.logger.Warn("index: upsert output failed", slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	kind := ledger.ChangeUpdated
	if prev == "" {
		kind = ledger.ChangeCreated
	}
	if s.pub != nil {
		s.pub.PublishOutputEvent(kind, p)
	}
}

// Observe persists pass progress and forwards it to subscribers. It is
// meant to be installed as the pipeline observer.
func (s *Service) Observe(e pipeline.Event) {
	if e.Type == pipeline.EventPassStarted {
		p := e.Pass
		if err := s.db.SavePass(&p); err != nil {
			s.logger.Warn("ledger: save running pass failed", slog.String("pass_id", p.ID), slog.String("error", err.Error()))
		}
	}
	if s.pub == nil {
		return
	}
	data := map[string]any{"pass": e.Pass}
	if e.Record != nil {
		data["record"] = e.Record
	}
	s.pub.Publish(sse.Event{Type: e.Type, Data: data})
}

// GetPass returns a pass with its record outcomes.
func (s *Service) GetPass(_ context.Context, id string) (*models.Pass, error) {
	return s.db.GetPass(id)
}

// ListPasses returns passes newest first and the total count.
func (s *Service) ListPasses(_ context.Context, collection string, limit, offset int) ([]models.Pass, int, error) {
	if collection != "" {
		if _, err := s.Collection(collection); err != nil {
			return nil, 0, err
		}
	}
	passes, total, err := s.db.ListPasses(collection, limit, offset)
	return nonNilSlice(passes), total, err
}

// ListOutputs returns indexed outputs, optionally limited to a collection's
// markdown directory.
func (s *Service) ListOutputs(_ context.Context, collection string, limit, offset int) ([]ledger.OutputRow, int, error) {
	prefix := ""
	if collection != "" {
		c, err := s.Collection(collection)
		if err != nil {
			return nil, 0, err
		}
		prefix = strings.Trim(path.Clean("/"+c.Paths.Markdown), "/") + "/"
	}
	rows, total, err := s.db.ListOutputs(prefix, limit, offset)
	for i := range rows {
		rows[i].Tags = nonNilSlice(rows[i].Tags)
	}
	return nonNilSlice(rows), total, err
}

// GetOutput reads a generated file from the site tree and parses it.
func (s *Service) GetOutput(_ context.Context, p string) (*OutputDetail, error) {
	if !strings.HasSuffix(p, ".md") {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, p)
	}
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, p)
		}
		return nil, err
	}
	titleKey := ""
	for _, src := range s.Sources() {
		dir := strings.Trim(path.Clean("/"+src.Dir), "/")
		if strings.HasPrefix(p, dir+"/") {
			titleKey = src.TitleKey
		}
	}
	res, err := parser.Parse(data, titleKey)
	if err != nil {
		return nil, err
	}
	updated := time.Now().UTC()
	if row, err := s.db.GetOutput(p); err == nil {
		updated = row.UpdatedAt
	}
	return &OutputDetail{
		Path:        p,
		Title:       res.Title,
		Permalink:   res.Permalink,
		Content:     string(data),
		Checksum:    storage.Checksum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Assets:      nonNilSlice(res.Links),
		UpdatedAt:   updated,
	}, nil
}

// Search delegates full-text search to the ledger.
func (s *Service) Search(_ context.Context, query string, limit int) ([]ledger.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	return nonNilSlice(res), err
}

// RemoteAssets lists outputs that still link to remote assets, typically
// after failed downloads.
func (s *Service) RemoteAssets(_ context.Context) (map[string][]string, error) {
	return s.db.RemoteAssets()
}

// AssetUsers lists the outputs that link to an asset.
func (s *Service) AssetUsers(_ context.Context, destination string) ([]string, error) {
	users, err := s.db.AssetUsers(destination)
	return nonNilSlice(users), err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
