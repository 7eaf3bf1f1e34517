package frontmatter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/notionsite/internal/record"
	"github.com/starford/notionsite/internal/relation"
)

type stubResolver map[string]relation.Triple

func (s stubResolver) Resolve(_ context.Context, id string) (relation.Triple, error) {
	t, ok := s[id]
	if !ok {
		return relation.Triple{}, errors.New("not found")
	}
	return t, nil
}

func TestAssemble_KeyOrder(t *testing.T) {
	a := &Assembler{
		TitleField: "Name",
		Groups: record.FieldGroups{
			Layout:      "Layout",
			Date:        "Date",
			Text:        []string{"Description"},
			MultiSelect: []string{"Tags"},
			Checkbox:    []string{"Featured"},
			Number:      []string{"Reading Time"},
			Relation:    []string{"Series"},
		},
		AddPermalink: true,
		Relations: stubResolver{
			"rel-1": {Title: "Part One", Slug: "part-one", Filename: "part-one.md"},
		},
	}
	rec := &record.SourceRecord{
		ID:     "p1",
		Title:  "Hello World",
		Date:   "2024-01-02",
		Cover:  "https://images.unsplash.com/photo-1?fm=jpg",
		Layout: "post.njk",
		Fields: map[string]record.Value{
			"Description":  {Kind: record.KindText, Text: "Intro"},
			"Tags":         {Kind: record.KindMultiSelect, Strings: []string{"go", "web"}},
			"Featured":     {Kind: record.KindCheckbox, Bool: true},
			"Reading Time": {Kind: record.KindNumber, Number: 4},
			"Series":       {Kind: record.KindRelation, Strings: []string{"rel-1"}},
		},
	}

	res := a.Assemble(context.Background(), rec, "blog/hello-world/")
	want := strings.Join([]string{
		"---",
		"layout: post.njk",
		"name: Hello World",
		"date: 2024-01-02",
		"cover: https://images.unsplash.com/photo-1?fm=jpg",
		"description: Intro",
		`tags: ["go", "web"]`,
		"featured: true",
		"readingTime: 4",
		"series:",
		"  - name: Part One",
		"    slug: part-one",
		"    filename: part-one.md",
		"permalink: blog/hello-world/",
		"---",
		"",
	}, "\n")
	if res.Header != want {
		t.Errorf("header mismatch\n got:\n%s\nwant:\n%s", res.Header, want)
	}
	if len(res.RelationFailures) != 0 {
		t.Errorf("unexpected relation failures: %v", res.RelationFailures)
	}
}

func TestAssemble_OmitsAbsentAndFalsy(t *testing.T) {
	a := &Assembler{
		TitleField: "Title",
		Groups: record.FieldGroups{
			Date:     "Date",
			Text:     []string{"Empty", "Missing"},
			Select:   []string{"Category"},
			Number:   []string{"Zero"},
			Checkbox: []string{"Draft", "Absent Box"},
			URL:      []string{"Link"},
		},
	}
	rec := &record.SourceRecord{
		ID:    "p1",
		Title: "T",
		Fields: map[string]record.Value{
			"Empty":    {Kind: record.KindText},
			"Category": {Kind: record.KindSelect, Null: true},
			"Zero":     {Kind: record.KindNumber},
			"Draft":    {Kind: record.KindCheckbox, Bool: false},
			"Link":     {Kind: record.KindURL, Null: true},
		},
	}

	res := a.Assemble(context.Background(), rec, "")
	want := "---\ntitle: T\ndraft: false\n---\n"
	if res.Header != want {
		t.Errorf("got:\n%s\nwant:\n%s", res.Header, want)
	}
	for _, key := range []string{"empty:", "missing:", "category:", "zero:", "absentBox:", "link:", "date:", "permalink:"} {
		if strings.Contains(res.Header, key) {
			t.Errorf("header unexpectedly contains %q", key)
		}
	}
}

func TestAssemble_EmptyListIsEmitted(t *testing.T) {
	a := &Assembler{TitleField: "Title", Groups: record.FieldGroups{Person: []string{"Authors"}}}
	rec := &record.SourceRecord{
		Title:  "T",
		Fields: map[string]record.Value{"Authors": {Kind: record.KindPerson, Strings: []string{}}},
	}
	res := a.Assemble(context.Background(), rec, "")
	if !strings.Contains(res.Header, "authors: []\n") {
		t.Errorf("header = %q", res.Header)
	}
}

func TestAssemble_RelationFailureEmitsEmptyTriple(t *testing.T) {
	a := &Assembler{
		TitleField: "Title",
		Groups:     record.FieldGroups{Relation: []string{"Related"}},
		Relations:  stubResolver{"ok": {Title: "Ok", Slug: "ok", Filename: "ok.md"}},
	}
	rec := &record.SourceRecord{
		Title: "T",
		Fields: map[string]record.Value{
			"Related": {Kind: record.KindRelation, Strings: []string{"broken", "ok"}},
		},
	}
	res := a.Assemble(context.Background(), rec, "")

	want := "related:\n" +
		"  - title: \n    slug: \n    filename: \n" +
		"  - title: Ok\n    slug: ok\n    filename: ok.md\n"
	if !strings.Contains(res.Header, want) {
		t.Errorf("header = %q", res.Header)
	}
	if len(res.RelationFailures) != 1 || res.RelationFailures[0].ID != "broken" || res.RelationFailures[0].Field != "Related" {
		t.Errorf("failures = %+v", res.RelationFailures)
	}
}

func TestDocument(t *testing.T) {
	if got := Document("---\ntitle: T\n---\n", "body\n"); got != "---\ntitle: T\n---\nbody\n" {
		t.Errorf("got %q", got)
	}
}
