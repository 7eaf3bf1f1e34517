// Package relation resolves relation-field reference ids to the
// title/slug/filename triple written into frontmatter.
package relation

import (
	"context"
	"fmt"

	"github.com/starford/notionsite/internal/apperr"
	"github.com/starford/notionsite/internal/naming"
	"github.com/starford/notionsite/internal/record"
)

// PageFetcher retrieves a single page by id.
type PageFetcher interface {
	RetrievePage(ctx context.Context, id string) (record.Page, error)
}

// Triple is the display form of a referenced record.
type Triple struct {
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Filename string `json:"filename"`
}

// Resolver derives triples for referenced records. SlugField names the
// rich-text override field; when it is empty or the referenced page carries
// no override, the slug is computed from the title.
type Resolver struct {
	Pages      PageFetcher
	TitleField string
	SlugField  string
	DateField  string
	DatePrefix bool
	Slugger    naming.Slugger
}

// Resolve fetches the referenced page and returns its triple. Errors wrap
// apperr.ErrRelationResolve and never carry a partial triple.
func (r *Resolver) Resolve(ctx context.Context, id string) (Triple, error) {
	page, err := r.Pages.RetrievePage(ctx, id)
	if err != nil {
		return Triple{}, fmt.Errorf("%w: retrieve %s: %v", apperr.ErrRelationResolve, id, err)
	}
	props := record.Properties(page)

	title, _ := record.Title(props, r.TitleField)

	var slug string
	if r.SlugField != "" {
		if v, ok := record.Lookup(props, r.SlugField, record.KindText); ok {
			slug = v.Text
		}
	}
	if slug == "" {
		slug = r.Slugger.Slug(title)
	}
	if slug == "" {
		return Triple{}, fmt.Errorf("%w: page %s has neither title nor slug", apperr.ErrRelationResolve, id)
	}

	var date string
	if r.DateField != "" {
		if v, ok := record.Lookup(props, r.DateField, record.KindDate); ok {
			date = v.Text
		}
	}

	return Triple{
		Title:    title,
		Slug:     slug,
		Filename: naming.Filename(slug, date, r.DatePrefix),
	}, nil
}
