// Package parser reads generated markdown files back: header fields, body,
// title, permalink and the assets the body links to.
package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Link kinds.
const (
	LinkImage = "image"
	LinkFile  = "link"
)

// Link is an image or link destination found in the body.
type Link struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	// Remote is set for absolute http(s) destinations.
	Remote bool `json:"remote"`
}

// Result holds the output of parsing a generated file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Permalink   string
	Tags        []string
	Links       []Link
}

// Parse splits data into header and body. titleKey is the header key holding
// the title; "title" is used when empty. A header that is not valid YAML is
// read line by line as "key: value" pairs.
func Parse(data []byte, titleKey string) (*Result, error) {
	if titleKey == "" {
		titleKey = "title"
	}
	fm, body := splitFrontmatter(data)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, titleKey, body),
		Permalink:   stringField(fm, "permalink"),
		Tags:        extractTags(fm),
		Links:       extractLinks([]byte(body)),
	}, nil
}

func splitFrontmatter(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte("---")) {
		return nil, string(data)
	}

	var fm map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(trimmed), &fm)
	if err == nil {
		return stringKeys(fm), string(body)
	}

	header, rest, ok := cutHeader(trimmed)
	if !ok {
		return nil, string(data)
	}
	return scanHeader(header), rest
}

// cutHeader returns the lines between the opening and closing delimiters.
func cutHeader(data []byte) ([]byte, string, bool) {
	rest := data[3:]
	idx := bytes.Index(rest, []byte("\n---"))
	if idx < 0 {
		return nil, "", false
	}
	body := rest[idx+len("\n---"):]
	body = bytes.TrimPrefix(body, []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))
	return rest[:idx], string(body), true
}

// scanHeader reads top-level "key: value" lines. Indented lines belong to
// the previous key and are skipped.
func scanHeader(header []byte) map[string]any {
	fm := make(map[string]any)
	sc := bufio.NewScanner(bytes.NewReader(header))
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fm[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fm
}

// stringKeys converts nested YAML maps to map[string]any so the header can
// be encoded as JSON.
func stringKeys(fm map[string]any) map[string]any {
	if fm == nil {
		return nil
	}
	out := make(map[string]any, len(fm))
	for k, v := range fm {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[fmt.Sprint(k)] = normalizeValue(vv)
		}
		return m
	case map[string]any:
		return stringKeys(t)
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	default:
		return v
	}
}

func stringField(fm map[string]any, key string) string {
	if s, ok := fm[key].(string); ok {
		return s
	}
	return ""
}

// extractTags collects the "tags" header list, deduplicated. Inline list
// syntax and block lists both decode to a slice.
func extractTags(fm map[string]any) []string {
	raw, ok := fm["tags"].([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// extractLinks walks the body AST and returns image and link destinations
// in document order.
func extractLinks(body []byte) []Link {
	root := goldmark.New().Parser().Parse(text.NewReader(body))

	var out []Link
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Image:
			out = append(out, newLink(LinkImage, string(node.Destination)))
		case *gmast.Link:
			out = append(out, newLink(LinkFile, string(node.Destination)))
		}
		return gmast.WalkContinue, nil
	})
	return out
}

func newLink(kind, dest string) Link {
	return Link{
		Kind:        kind,
		Destination: dest,
		Remote:      strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://"),
	}
}

// deriveTitle returns the header title, otherwise the first H1 heading.
func deriveTitle(fm map[string]any, titleKey, body string) string {
	if s := stringField(fm, titleKey); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
