package assets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/starford/notionsite/internal/apperr"
)

// Fetcher downloads url into dir/filename and returns the written path.
type Fetcher interface {
	Fetch(ctx context.Context, url, dir, filename string) (string, error)
}

// Localized is a reference that was downloaded and rewritten.
type Localized struct {
	Reference
	Path string `json:"path"`
	Link string `json:"link"`
}

// Failure is a reference left pointing at its remote URL.
type Failure struct {
	Reference
	Err error `json:"-"`
}

// Result is the outcome of localizing one document.
type Result struct {
	Text      string
	Localized []Localized
	Failures  []Failure
}

// Localizer downloads the assets of one collection. Root is prepended to
// each kind's download directory.
type Localizer struct {
	Root    string
	Config  Config
	Fetcher Fetcher
	Logger  *slog.Logger
}

// Localize downloads every reference in text, one at a time, and replaces
// each successfully fetched URL at its recorded position with the kind's
// markdown path plus the local filename. Failed references keep their
// remote URL and are reported in Result.Failures.
func (l *Localizer) Localize(ctx context.Context, text, slug, date string) Result {
	res := Result{Text: text}
	refs := Discover(text)
	if len(refs) == 0 {
		return res
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, ref := range refs {
		kc := l.Config.For(ref.Kind)
		filename := LocalFilename(kc, slug, date, ref.Ordinal, Extension(ref.Kind, ref.URL))
		dir := kc.Dir(slug)
		if l.Root != "" {
			dir = filepath.Join(l.Root, dir)
		}

		path, err := l.fetch(ctx, ref.URL, dir, filename)
		if err != nil {
			logger.Warn("asset fetch failed",
				slog.String("kind", string(ref.Kind)),
				slog.String("url", ref.URL),
				slog.String("error", err.Error()),
			)
			res.Failures = append(res.Failures, Failure{Reference: ref, Err: err})
			continue
		}
		logger.Debug("asset downloaded", slog.String("path", path))
		res.Localized = append(res.Localized, Localized{
			Reference: ref,
			Path:      path,
			Link:      kc.Link(slug, filename),
		})
	}

	res.Text = substitute(text, res.Localized)
	return res
}

func (l *Localizer) fetch(ctx context.Context, url, dir, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: mkdir %s: %v", apperr.ErrAssetFetch, dir, err)
	}
	path, err := l.Fetcher.Fetch(ctx, url, dir, filename)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperr.ErrAssetFetch, url, err)
	}
	return path, nil
}

// substitute splices each link over its URL span, last span first.
func substitute(text string, items []Localized) string {
	sorted := append([]Localized(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })
	for _, item := range sorted {
		text = text[:item.Start] + item.Link + text[item.End:]
	}
	return text
}
