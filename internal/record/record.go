// Package record extracts typed source records from raw content-store pages.
package record

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the declared kind of a configured field group.
type Kind string

// Supported field kinds, in frontmatter emission order.
const (
	KindText          Kind = "text"
	KindMultiSelect   Kind = "multi_select"
	KindSelect        Kind = "select"
	KindDate          Kind = "date"
	KindCheckbox      Kind = "checkbox"
	KindURL           Kind = "url"
	KindNumber        Kind = "number"
	KindPerson        Kind = "person"
	KindRelation      Kind = "relation"
	KindFormulaString Kind = "formula_string"
	KindFormulaNumber Kind = "formula_number"
)

// Kinds lists every field-group kind in emission order.
var Kinds = []Kind{
	KindText, KindMultiSelect, KindSelect, KindDate, KindCheckbox, KindURL,
	KindNumber, KindPerson, KindRelation, KindFormulaString, KindFormulaNumber,
}

// Value is a field value tagged with its kind. Null reports a property that
// exists on the page but carries no value; a field missing from the page has
// no Value at all.
type Value struct {
	Kind    Kind
	Null    bool
	Text    string
	Strings []string
	Bool    bool
	Number  float64
}

// Truthy reports whether the value would be emitted under the omit-on-falsy
// rule: empty text, zero numbers, false booleans and null values are falsy;
// lists are truthy even when empty.
func (v Value) Truthy() bool {
	if v.Null {
		return false
	}
	switch v.Kind {
	case KindMultiSelect, KindPerson, KindRelation:
		return v.Strings != nil
	case KindCheckbox:
		return v.Bool
	case KindNumber, KindFormulaNumber:
		return v.Number != 0 && !math.IsNaN(v.Number)
	default:
		return v.Text != ""
	}
}

// String renders a scalar value the way it appears in a frontmatter line.
func (v Value) String() string {
	switch v.Kind {
	case KindCheckbox:
		return strconv.FormatBool(v.Bool)
	case KindNumber, KindFormulaNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindMultiSelect, KindPerson, KindRelation:
		return strings.Join(v.Strings, ", ")
	default:
		return v.Text
	}
}

// FieldGroup is one ordered group of configured field names of a single kind.
type FieldGroup struct {
	Kind   Kind
	Fields []string
}

// FieldGroups is the configured optional metadata: the layout and date
// fields plus one field-name list per kind.
type FieldGroups struct {
	Layout        string   `yaml:"layout"`
	Date          string   `yaml:"date"`
	Text          []string `yaml:"text"`
	MultiSelect   []string `yaml:"multi_select"`
	Select        []string `yaml:"select"`
	Dates         []string `yaml:"dates"`
	Checkbox      []string `yaml:"checkbox"`
	URL           []string `yaml:"url"`
	Number        []string `yaml:"number"`
	Person        []string `yaml:"person"`
	Relation      []string `yaml:"relation"`
	FormulaString []string `yaml:"formula_string"`
	FormulaNumber []string `yaml:"formula_number"`
}

// Groups returns the configured field groups in emission order. Kinds with no
// configured fields are skipped.
func (g FieldGroups) Groups() []FieldGroup {
	lists := map[Kind][]string{
		KindText:          g.Text,
		KindMultiSelect:   g.MultiSelect,
		KindSelect:        g.Select,
		KindDate:          g.Dates,
		KindCheckbox:      g.Checkbox,
		KindURL:           g.URL,
		KindNumber:        g.Number,
		KindPerson:        g.Person,
		KindRelation:      g.Relation,
		KindFormulaString: g.FormulaString,
		KindFormulaNumber: g.FormulaNumber,
	}
	out := make([]FieldGroup, 0, len(Kinds))
	for _, k := range Kinds {
		if fields := lists[k]; len(fields) > 0 {
			out = append(out, FieldGroup{Kind: k, Fields: fields})
		}
	}
	return out
}

// SourceRecord is one content item selected for the current pass.
type SourceRecord struct {
	ID         string
	Title      string
	Status     string
	Date       string
	Cover      string
	Layout     string
	CustomSlug string
	// Fields holds configured fields present on the page, keyed by field name.
	Fields map[string]Value
}

// Field returns the value of a configured field and whether the page had it.
func (r *SourceRecord) Field(name string) (Value, bool) {
	v, ok := r.Fields[name]
	return v, ok
}
