package record

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/starford/notionsite/internal/apperr"
)

// Page is a raw content-store page: an object with "id", "cover" and
// "properties" members as decoded from JSON.
type Page = map[string]any

// accessor reads one property kind. key is the member that must exist on the
// property object for the kind to apply; path selects the value(s) from the
// property object.
type accessor struct {
	key    string
	path   jp.Expr
	decode func(kind Kind, results []any) Value
}

var (
	titleAccessor = accessor{key: "title", path: jp.MustParseString("$.title[*].plain_text"), decode: joinText}
	statusPaths   = map[string]jp.Expr{
		"status": jp.MustParseString("$.status.name"),
		"select": jp.MustParseString("$.select.name"),
	}
	coverPaths = []jp.Expr{
		jp.MustParseString("$.cover.file.url"),
		jp.MustParseString("$.cover.external.url"),
	}

	accessors = map[Kind]accessor{
		KindText:          {key: "rich_text", path: jp.MustParseString("$.rich_text[*].plain_text"), decode: joinText},
		KindMultiSelect:   {key: "multi_select", path: jp.MustParseString("$.multi_select[*].name"), decode: stringList},
		KindSelect:        {key: "select", path: jp.MustParseString("$.select.name"), decode: firstText},
		KindDate:          {key: "date", path: jp.MustParseString("$.date.start"), decode: dateOnly},
		KindCheckbox:      {key: "checkbox", path: jp.MustParseString("$.checkbox"), decode: firstBool},
		KindURL:           {key: "url", path: jp.MustParseString("$.url"), decode: firstText},
		KindNumber:        {key: "number", path: jp.MustParseString("$.number"), decode: firstNumber},
		KindPerson:        {key: "people", path: jp.MustParseString("$.people[*].name"), decode: stringList},
		KindRelation:      {key: "relation", path: jp.MustParseString("$.relation[*].id"), decode: stringList},
		KindFormulaString: {key: "formula", path: jp.MustParseString("$.formula.string"), decode: firstText},
		KindFormulaNumber: {key: "formula", path: jp.MustParseString("$.formula.number"), decode: firstNumber},
	}
)

// Spec names the fields an extraction reads.
type Spec struct {
	TitleField      string
	StatusField     string
	StatusType      string
	CustomSlugField string
	Groups          FieldGroups
}

// Lookup reads property name of the given kind from a page's properties.
// ok is false when the property is missing or is not of that kind.
func Lookup(props map[string]any, name string, kind Kind) (Value, bool) {
	acc, found := accessors[kind]
	if !found {
		return Value{}, false
	}
	return lookup(props, name, kind, acc)
}

// Title reads the title-kind property name.
func Title(props map[string]any, name string) (string, bool) {
	v, ok := lookup(props, name, KindText, titleAccessor)
	if !ok || v.Null {
		return "", false
	}
	return v.Text, true
}

func lookup(props map[string]any, name string, kind Kind, acc accessor) (Value, bool) {
	prop, ok := props[name].(map[string]any)
	if !ok {
		return Value{}, false
	}
	raw, ok := prop[acc.key]
	if !ok {
		return Value{}, false
	}
	if raw == nil {
		return Value{Kind: kind, Null: true}, true
	}
	return acc.decode(kind, acc.path.Get(prop)), true
}

// Properties returns the "properties" object of a page.
func Properties(page Page) map[string]any {
	props, _ := page["properties"].(map[string]any)
	return props
}

// Extract builds a SourceRecord from a raw page. Relation fields keep only
// the referenced ids. It fails with apperr.ErrRecordInvalid when the id is
// missing or the title is absent or blank.
func Extract(page Page, spec Spec) (*SourceRecord, error) {
	id, _ := page["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: page has no id", apperr.ErrRecordInvalid)
	}
	props := Properties(page)

	title, ok := Title(props, spec.TitleField)
	if !ok || strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: record %s has no %q title", apperr.ErrRecordInvalid, id, spec.TitleField)
	}

	rec := &SourceRecord{
		ID:     id,
		Title:  title,
		Cover:  cover(page),
		Fields: make(map[string]Value),
	}

	if spec.StatusField != "" {
		if path, ok := statusPaths[spec.StatusType]; ok {
			if prop, ok := props[spec.StatusField].(map[string]any); ok {
				rec.Status = firstText(KindSelect, path.Get(prop)).Text
			}
		}
	}
	if spec.Groups.Date != "" {
		if v, ok := Lookup(props, spec.Groups.Date, KindDate); ok {
			rec.Date = v.Text
		}
	}
	if spec.Groups.Layout != "" {
		if v, ok := Lookup(props, spec.Groups.Layout, KindSelect); ok {
			rec.Layout = v.Text
		}
	}
	if spec.CustomSlugField != "" {
		if v, ok := Lookup(props, spec.CustomSlugField, KindText); ok {
			rec.CustomSlug = v.Text
		}
	}

	for _, group := range spec.Groups.Groups() {
		for _, name := range group.Fields {
			if v, ok := Lookup(props, name, group.Kind); ok {
				rec.Fields[name] = v
			}
		}
	}
	return rec, nil
}

// cover prefers an uploaded file over an externally hosted image.
func cover(page Page) string {
	for _, path := range coverPaths {
		for _, v := range path.Get(page) {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func joinText(kind Kind, results []any) Value {
	var b strings.Builder
	for _, r := range results {
		if s, ok := r.(string); ok {
			b.WriteString(s)
		}
	}
	return Value{Kind: kind, Text: b.String()}
}

func firstText(kind Kind, results []any) Value {
	for _, r := range results {
		if s, ok := r.(string); ok {
			return Value{Kind: kind, Text: s}
		}
	}
	return Value{Kind: kind, Null: true}
}

func dateOnly(kind Kind, results []any) Value {
	v := firstText(kind, results)
	if i := strings.IndexByte(v.Text, 'T'); i >= 0 {
		v.Text = v.Text[:i]
	}
	return v
}

func stringList(kind Kind, results []any) Value {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return Value{Kind: kind, Strings: out}
}

func firstBool(kind Kind, results []any) Value {
	for _, r := range results {
		if b, ok := r.(bool); ok {
			return Value{Kind: kind, Bool: b}
		}
	}
	return Value{Kind: kind, Null: true}
}

func firstNumber(kind Kind, results []any) Value {
	for _, r := range results {
		switch n := r.(type) {
		case float64:
			return Value{Kind: kind, Number: n}
		case int64:
			return Value{Kind: kind, Number: float64(n)}
		case int:
			return Value{Kind: kind, Number: float64(n)}
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return Value{Kind: kind, Number: f}
			}
		}
	}
	return Value{Kind: kind, Null: true}
}
