package relation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/notionsite/internal/apperr"
	"github.com/starford/notionsite/internal/record"
)

type stubPages map[string]string

func (s stubPages) RetrievePage(_ context.Context, id string) (record.Page, error) {
	raw, ok := s[id]
	if !ok {
		return nil, errors.New("object_not_found")
	}
	var page record.Page
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		return nil, err
	}
	return page, nil
}

func TestResolve_ComputesSlugFromTitle(t *testing.T) {
	r := &Resolver{
		Pages: stubPages{"rel-1": `{"id": "rel-1", "properties": {
			"Name": {"title": [{"plain_text": "Über Uns"}]},
			"Date": {"date": {"start": "2023-11-30T08:00:00Z"}}
		}}`},
		TitleField: "Name",
		DateField:  "Date",
		DatePrefix: true,
	}
	got, err := r.Resolve(context.Background(), "rel-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := Triple{Title: "Über Uns", Slug: "uber-uns", Filename: "20231130_uber-uns.md"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestResolve_PrefersSlugOverride(t *testing.T) {
	r := &Resolver{
		Pages: stubPages{"rel-2": `{"id": "rel-2", "properties": {
			"Name": {"title": [{"plain_text": "Some Title"}]},
			"Slug": {"rich_text": [{"plain_text": "custom"}]}
		}}`},
		TitleField: "Name",
		SlugField:  "Slug",
	}
	got, err := r.Resolve(context.Background(), "rel-2")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Slug != "custom" || got.Filename != "custom.md" {
		t.Errorf("got %+v", got)
	}
}

func TestResolve_EmptyOverrideFallsBackToTitle(t *testing.T) {
	r := &Resolver{
		Pages: stubPages{"rel-3": `{"id": "rel-3", "properties": {
			"Name": {"title": [{"plain_text": "Fallback Title"}]},
			"Slug": {"rich_text": []}
		}}`},
		TitleField: "Name",
		SlugField:  "Slug",
	}
	got, err := r.Resolve(context.Background(), "rel-3")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Slug != "fallback-title" {
		t.Errorf("slug = %q", got.Slug)
	}
}

func TestResolve_FetchFailure(t *testing.T) {
	r := &Resolver{Pages: stubPages{}, TitleField: "Name"}
	got, err := r.Resolve(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrRelationResolve) {
		t.Fatalf("err = %v, want ErrRelationResolve", err)
	}
	if got != (Triple{}) {
		t.Errorf("expected empty triple, got %+v", got)
	}
}

func TestResolve_NoTitle(t *testing.T) {
	r := &Resolver{
		Pages:      stubPages{"rel-4": `{"id": "rel-4", "properties": {}}`},
		TitleField: "Name",
	}
	if _, err := r.Resolve(context.Background(), "rel-4"); !errors.Is(err, apperr.ErrRelationResolve) {
		t.Errorf("err = %v", err)
	}
}
