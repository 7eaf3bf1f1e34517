package naming

import (
	"regexp"
	"testing"
)

var slugShape = regexp.MustCompile(`^[a-z0-9-]*$`)

func TestSlug_Basic(t *testing.T) {
	cases := map[string]string{
		"Hello World":          "hello-world",
		"Café Müller":          "cafe-muller",
		"Ça va? Très bien!":    "ca-va-tres-bien",
		"Tips/Tricks":          "tips-tricks",
		"Two  Spaces":          "two--spaces",
		"Straße & Œuvre":       "strasse--oeuvre",
		"Crème Brûlée 2024":    "creme-brulee-2024",
		"already-a-slug-42":    "already-a-slug-42",
		"":                     "",
		"Ünïcödé Tëst ÀÂÎÔÛÇ": "unicode-test-aaiouc",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlug_ExpandUmlauts(t *testing.T) {
	s := Slugger{ExpandUmlauts: true}
	if got := s.Slug("Grüße aus Köln"); got != "gruesse-aus-koeln" {
		t.Errorf("got %q", got)
	}
	if got := s.Slug("Ärger"); got != "aerger" {
		t.Errorf("upper-case umlaut: got %q", got)
	}
}

func TestSlug_DecomposedInput(t *testing.T) {
	// "Müller" with U+0308 COMBINING DIAERESIS.
	decomposed := "Müller"
	if got := Slug(decomposed); got != "muller" {
		t.Errorf("got %q", got)
	}
	if got := (Slugger{ExpandUmlauts: true}).Slug(decomposed); got != "mueller" {
		t.Errorf("expand: got %q", got)
	}
}

func TestSlug_ShapeAndIdempotence(t *testing.T) {
	inputs := []string{
		"Hello World", "Café Müller", "  leading and trailing  ", "日本語のタイトル",
		"emoji 🚀 launch", "a/b/c", "Tab\tand\nnewline", "MiXeD CaSe 123", "ñandú",
	}
	for _, in := range inputs {
		for _, s := range []Slugger{{}, {ExpandUmlauts: true}} {
			once := s.Slug(in)
			if !slugShape.MatchString(once) {
				t.Errorf("Slug(%q) = %q has characters outside [a-z0-9-]", in, once)
			}
			if twice := s.Slug(once); twice != once {
				t.Errorf("Slug not idempotent for %q: %q then %q", in, once, twice)
			}
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("post", "2024-03-05", true); got != "20240305_post.md" {
		t.Errorf("with prefix: got %q", got)
	}
	if got := Filename("post", "2024-03-05", false); got != "post.md" {
		t.Errorf("without prefix: got %q", got)
	}
	if got := Filename("post", "", true); got != "post.md" {
		t.Errorf("prefix without date: got %q", got)
	}
}

func TestDateDigits(t *testing.T) {
	if got := DateDigits("2024-03-05"); got != "20240305" {
		t.Errorf("got %q", got)
	}
}

func TestURLPath(t *testing.T) {
	full := PermalinkConfig{IncludePostType: true, IncludeYear: true, IncludeMonth: true, IncludeDay: true}
	if got := URLPath(full, "blog", "hello", "", "2024-03-05"); got != "blog/2024/03/05/hello/" {
		t.Errorf("full: got %q", got)
	}

	if got := URLPath(PermalinkConfig{IncludePostType: true}, "posts", "hello", "", ""); got != "posts/hello/" {
		t.Errorf("post type only: got %q", got)
	}

	if got := URLPath(full, "blog", "hello", "", ""); got != "blog/hello/" {
		t.Errorf("no date: got %q", got)
	}

	custom := PermalinkConfig{IncludeYear: true, SlugField: "Slug"}
	if got := URLPath(custom, "blog", "hello", "custom-one", "2024-03-05"); got != "2024/custom-one/" {
		t.Errorf("custom slug: got %q", got)
	}
	if got := URLPath(custom, "blog", "hello", "", "2024-03-05"); got != "2024/hello/" {
		t.Errorf("custom slug field without value: got %q", got)
	}

	noField := PermalinkConfig{}
	if got := URLPath(noField, "blog", "hello", "custom-one", ""); got != "hello/" {
		t.Errorf("custom slug ignored without field: got %q", got)
	}
}

func TestCamelize(t *testing.T) {
	cases := map[string]string{
		"Name":         "name",
		"Title":        "title",
		"Date Updated": "dateUpdated",
		"FormulaText":  "formulaText",
		"tags":         "tags",
		"my field":     "myField",
		"Status_Select": "status_Select",
	}
	for in, want := range cases {
		if got := Camelize(in); got != want {
			t.Errorf("Camelize(%q) = %q, want %q", in, got, want)
		}
	}
}
