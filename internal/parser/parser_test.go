package parser

import (
	"strings"
	"testing"
)

const generated = "---\n" +
	"title: Hello World\n" +
	"date: 2024-01-02\n" +
	"tags: [\"go\", \"site\", \"go\"]\n" +
	"series:\n" +
	"  - title: Part One\n    slug: part-one\n    filename: part-one.md\n" +
	"permalink: blog/hello-world/\n" +
	"---\n" +
	"# Heading\n\n" +
	"![photo](/assets/img/hello-world_0.png) ![remote](https://s3.amazonaws.com/b/x.png)\n\n" +
	"[manual](/assets/pdf/hello-world_0.pdf)\n"

func TestParse_GeneratedFile(t *testing.T) {
	r, err := Parse([]byte(generated), "title")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello World" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Permalink != "blog/hello-world/" {
		t.Errorf("permalink = %q", r.Permalink)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "go" || r.Tags[1] != "site" {
		t.Errorf("tags = %v, want [go site]", r.Tags)
	}
	if !strings.HasPrefix(strings.TrimLeft(r.Body, "\n"), "# Heading") {
		t.Errorf("body = %q", r.Body)
	}
	if _, ok := r.Frontmatter["series"]; !ok {
		t.Errorf("series missing from frontmatter: %v", r.Frontmatter)
	}
}

func TestParse_Links(t *testing.T) {
	r, _ := Parse([]byte(generated), "")
	want := []Link{
		{Kind: LinkImage, Destination: "/assets/img/hello-world_0.png"},
		{Kind: LinkImage, Destination: "https://s3.amazonaws.com/b/x.png", Remote: true},
		{Kind: LinkFile, Destination: "/assets/pdf/hello-world_0.pdf"},
	}
	if len(r.Links) != len(want) {
		t.Fatalf("links = %+v", r.Links)
	}
	for i := range want {
		if r.Links[i] != want[i] {
			t.Errorf("links[%d] = %+v, want %+v", i, r.Links[i], want[i])
		}
	}
}

func TestParse_CustomTitleKey(t *testing.T) {
	r, _ := Parse([]byte("---\nname: Custom\n---\nbody\n"), "name")
	if r.Title != "Custom" {
		t.Errorf("title = %q", r.Title)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input, "title")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLReadsLines(t *testing.T) {
	input := []byte("---\ntitle: Go: A Tour\nsummary: [unclosed\npermalink: posts/go-a-tour/\n---\nBody\n")
	r, err := Parse(input, "title")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Go: A Tour" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Permalink != "posts/go-a-tour/" {
		t.Errorf("permalink = %q", r.Permalink)
	}
	if r.Body != "Body\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_UnclosedHeader(t *testing.T) {
	input := "---\ntitle: x: y: {\nno closing delimiter\n"
	r, _ := Parse([]byte(input), "title")
	if len(r.Frontmatter) != 0 || r.Title != "" {
		t.Errorf("frontmatter=%v title=%q", r.Frontmatter, r.Title)
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "title", "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}

func TestParse_NestedHeaderHasStringKeys(t *testing.T) {
	r, _ := Parse([]byte(generated), "title")
	series, ok := r.Frontmatter["series"].([]any)
	if !ok || len(series) != 1 {
		t.Fatalf("series = %#v", r.Frontmatter["series"])
	}
	entry, ok := series[0].(map[string]any)
	if !ok || entry["slug"] != "part-one" {
		t.Errorf("entry = %#v", series[0])
	}
}
