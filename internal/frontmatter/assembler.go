// Package frontmatter renders a source record into the delimited header
// block that precedes the generated markdown body.
package frontmatter

import (
	"context"
	"strings"

	"github.com/starford/notionsite/internal/naming"
	"github.com/starford/notionsite/internal/record"
	"github.com/starford/notionsite/internal/relation"
)

// Delimiter opens and closes the header block.
const Delimiter = "---"

// RelationResolver turns a reference id into its display triple.
type RelationResolver interface {
	Resolve(ctx context.Context, id string) (relation.Triple, error)
}

type emitPolicy int

const (
	// omitFalsy drops absent, null and falsy values.
	omitFalsy emitPolicy = iota
	// emitPresent writes every value the page carries, including false.
	emitPresent
)

type format int

const (
	formatScalar format = iota
	formatList
	formatRelations
)

type descriptor struct {
	kind   record.Kind
	policy emitPolicy
	format format
}

// descriptors drive field emission; their order is the key order.
var descriptors = []descriptor{
	{kind: record.KindText, policy: omitFalsy, format: formatScalar},
	{kind: record.KindMultiSelect, policy: omitFalsy, format: formatList},
	{kind: record.KindSelect, policy: omitFalsy, format: formatScalar},
	{kind: record.KindDate, policy: omitFalsy, format: formatScalar},
	{kind: record.KindCheckbox, policy: emitPresent, format: formatScalar},
	{kind: record.KindURL, policy: omitFalsy, format: formatScalar},
	{kind: record.KindNumber, policy: omitFalsy, format: formatScalar},
	{kind: record.KindPerson, policy: omitFalsy, format: formatList},
	{kind: record.KindRelation, policy: omitFalsy, format: formatRelations},
	{kind: record.KindFormulaString, policy: omitFalsy, format: formatScalar},
	{kind: record.KindFormulaNumber, policy: omitFalsy, format: formatScalar},
}

// RelationFailure reports one reference that could not be resolved. The
// entry is still emitted with empty values.
type RelationFailure struct {
	Field string
	ID    string
	Err   error
}

// Result is an assembled header.
type Result struct {
	Header           string
	RelationFailures []RelationFailure
}

// Assembler renders headers for one collection. Keys are the camelized
// configured field names.
type Assembler struct {
	TitleField   string
	Groups       record.FieldGroups
	AddPermalink bool
	Relations    RelationResolver
}

// Assemble renders the header block for rec. urlPath is written as the
// permalink when AddPermalink is set.
func (a *Assembler) Assemble(ctx context.Context, rec *record.SourceRecord, urlPath string) Result {
	var (
		b   strings.Builder
		res Result
	)
	titleKey := naming.Camelize(a.TitleField)

	b.WriteString(Delimiter + "\n")
	if a.Groups.Layout != "" && rec.Layout != "" {
		writeLine(&b, naming.Camelize(a.Groups.Layout), rec.Layout)
	}
	writeLine(&b, titleKey, rec.Title)
	if a.Groups.Date != "" && rec.Date != "" {
		writeLine(&b, "date", rec.Date)
	}
	if rec.Cover != "" {
		writeLine(&b, "cover", rec.Cover)
	}

	groups := make(map[record.Kind][]string)
	for _, g := range a.Groups.Groups() {
		groups[g.Kind] = g.Fields
	}
	for _, d := range descriptors {
		for _, field := range groups[d.kind] {
			v, ok := rec.Field(field)
			if !ok || !d.emits(v) {
				continue
			}
			key := naming.Camelize(field)
			switch d.format {
			case formatList:
				writeLine(&b, key, quotedList(v.Strings))
			case formatRelations:
				b.WriteString(key + ":\n")
				for _, id := range v.Strings {
					t, err := a.resolve(ctx, id)
					if err != nil {
						res.RelationFailures = append(res.RelationFailures, RelationFailure{Field: field, ID: id, Err: err})
					}
					b.WriteString("  - " + titleKey + ": " + t.Title + "\n")
					b.WriteString("    slug: " + t.Slug + "\n")
					b.WriteString("    filename: " + t.Filename + "\n")
				}
			default:
				writeLine(&b, key, v.String())
			}
		}
	}

	if a.AddPermalink {
		writeLine(&b, "permalink", urlPath)
	}
	b.WriteString(Delimiter + "\n")

	res.Header = b.String()
	return res
}

func (a *Assembler) resolve(ctx context.Context, id string) (relation.Triple, error) {
	if a.Relations == nil {
		return relation.Triple{}, nil
	}
	t, err := a.Relations.Resolve(ctx, id)
	if err != nil {
		return relation.Triple{}, err
	}
	return t, nil
}

func (d descriptor) emits(v record.Value) bool {
	if d.policy == emitPresent {
		return !v.Null
	}
	return v.Truthy()
}

func writeLine(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = `"` + item + `"`
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Document joins a header and a body.
func Document(header, body string) string {
	return header + body
}
