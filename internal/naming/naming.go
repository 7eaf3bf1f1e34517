// Package naming derives slugs, file names, permalink paths, and frontmatter
// keys from record titles, dates, and configured field names.
package naming

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	umlauts = map[rune]string{
		'ä': "ae",
		'ö': "oe",
		'ü': "ue",
	}

	// Letters that do not decompose into base letter + combining mark.
	ligatures = map[rune]string{
		'ß': "ss",
		'æ': "ae",
		'œ': "oe",
		'ø': "o",
		'ł': "l",
		'đ': "d",
	}

	accents = map[rune]string{
		'ç': "c",
		'é': "e", 'è': "e", 'ê': "e", 'ë': "e",
		'à': "a", 'â': "a",
		'ù': "u", 'û': "u",
		'î': "i", 'ï': "i",
		'ô': "o",
	}

	camelRe = regexp.MustCompile(`(?:^\w|[A-Z]|\b\w)`)
	yearRe  = regexp.MustCompile(`\d{4}`)
	monthRe = regexp.MustCompile(`-(\d{2})-`)
	dayRe   = regexp.MustCompile(`\d{4}-\d{2}-(\d{2})`)
)

// Slugger turns titles into slugs. The zero value folds umlauts to their base
// letter; ExpandUmlauts spells them out (ä → ae).
type Slugger struct {
	ExpandUmlauts bool
}

// Slug returns a slug containing only [a-z0-9-]. Each whitespace rune and
// each "/" becomes one "-"; runs are not collapsed.
func (s Slugger) Slug(title string) string {
	lowered := norm.NFC.String(strings.ToLower(title))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsSpace(r) || r == '/':
			b.WriteByte('-')
		case s.ExpandUmlauts && umlauts[r] != "":
			b.WriteString(umlauts[r])
		case accents[r] != "":
			b.WriteString(accents[r])
		case ligatures[r] != "":
			b.WriteString(ligatures[r])
		default:
			b.WriteRune(r)
		}
	}

	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), b.String())
	if err != nil {
		folded = b.String()
	}

	out := make([]byte, 0, len(folded))
	for i := 0; i < len(folded); i++ {
		c := folded[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			out = append(out, c)
		}
	}
	return string(out)
}

// Slug slugifies title with the default Slugger.
func Slug(title string) string {
	return Slugger{}.Slug(title)
}

// DateDigits strips every non-digit from an ISO date ("2024-03-05" → "20240305").
func DateDigits(date string) string {
	var b strings.Builder
	for _, r := range date {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Filename returns "{slug}.md", or "{date}_{slug}.md" with the date's
// hyphens stripped when addDatePrefix is set and date is non-empty.
func Filename(slug, date string, addDatePrefix bool) string {
	if addDatePrefix && date != "" {
		return strings.ReplaceAll(date, "-", "") + "_" + slug + ".md"
	}
	return slug + ".md"
}

// PermalinkConfig shapes the URL path written into frontmatter and, when
// Publish is set, back to the content store.
type PermalinkConfig struct {
	IncludePostType bool   `yaml:"include_post_type"`
	IncludeYear     bool   `yaml:"include_year"`
	IncludeMonth    bool   `yaml:"include_month"`
	IncludeDay      bool   `yaml:"include_day"`
	SlugField       string `yaml:"slug_field"`
	Add             bool   `yaml:"add"`
	Publish         bool   `yaml:"publish"`
	Property        string `yaml:"property"`
}

// URLPath concatenates the enabled segments in fixed order, each followed by
// "/": post type, year, month, day, then the custom slug when a slug field is
// configured and the record carries one, otherwise slug. Date segments are
// skipped when date is empty or does not contain them.
func URLPath(p PermalinkConfig, postType, slug, customSlug, date string) string {
	var b strings.Builder
	if p.IncludePostType {
		b.WriteString(postType + "/")
	}
	if p.IncludeYear && date != "" {
		if y := yearRe.FindString(date); y != "" {
			b.WriteString(y + "/")
		}
	}
	if p.IncludeMonth && date != "" {
		if m := monthRe.FindStringSubmatch(date); m != nil {
			b.WriteString(m[1] + "/")
		}
	}
	if p.IncludeDay && date != "" {
		if d := dayRe.FindStringSubmatch(date); d != nil {
			b.WriteString(d[1] + "/")
		}
	}
	if p.SlugField != "" && customSlug != "" {
		b.WriteString(customSlug + "/")
	} else {
		b.WriteString(slug + "/")
	}
	return b.String()
}

// Camelize converts a configured field name into a frontmatter key:
// the first word character is lowercased, every other upper-case letter or
// word-initial character is uppercased, and whitespace is removed
// ("Date Updated" → "dateUpdated").
func Camelize(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range camelRe.FindAllStringIndex(s, -1) {
		b.WriteString(s[last:loc[0]])
		m := s[loc[0]:loc[1]]
		if loc[0] == 0 {
			b.WriteString(strings.ToLower(m))
		} else {
			b.WriteString(strings.ToUpper(m))
		}
		last = loc[1]
	}
	b.WriteString(s[last:])

	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, b.String())
}
