package pipeline

import (
	"path"

	"github.com/starford/notionsite/internal/assets"
	"github.com/starford/notionsite/internal/naming"
	"github.com/starford/notionsite/internal/notion"
	"github.com/starford/notionsite/internal/record"
)

// DefaultPermalinkProperty receives the published URL path when the
// collection does not name one.
const DefaultPermalinkProperty = "Permalink"

// Collection is one content-store database exported as one post type.
type Collection struct {
	PostType     string                 `yaml:"post_type"`
	DatabaseID   string                 `yaml:"database_id"`
	DataSourceID string                 `yaml:"data_source_id"`
	Required     Required               `yaml:"required"`
	StatusValues StatusValues           `yaml:"status_values"`
	Optional     record.FieldGroups     `yaml:"optional"`
	Permalink    naming.PermalinkConfig `yaml:"permalink"`
	Paths        Paths                  `yaml:"paths"`
	Assets       assets.Config          `yaml:"assets"`
}

// Required names the title and status properties.
type Required struct {
	Title  string `yaml:"title"`
	Status string `yaml:"status"`
	// StatusType is "status" or "select".
	StatusType string `yaml:"status_type"`
}

// StatusValues selects records in either Check state and moves exported
// ones to Update.
type StatusValues struct {
	Check    string `yaml:"check"`
	CheckAlt string `yaml:"check_alt"`
	Update   string `yaml:"update"`
}

// Paths places generated markdown files.
type Paths struct {
	Markdown      string `yaml:"md"`
	DatePrefix    bool   `yaml:"md_date_prefix"`
	SlugSubfolder bool   `yaml:"md_slug_subfolder"`
}

// Query returns the selection query of the collection.
func (c Collection) Query() notion.Query {
	return notion.Query{
		DatabaseID:     c.DatabaseID,
		DataSourceID:   c.DataSourceID,
		StatusProperty: c.Required.Status,
		StatusType:     c.Required.StatusType,
		Values:         []string{c.StatusValues.Check, c.StatusValues.CheckAlt},
	}
}

// ExtractSpec returns the fields a record extraction reads.
func (c Collection) ExtractSpec() record.Spec {
	return record.Spec{
		TitleField:      c.Required.Title,
		StatusField:     c.Required.Status,
		StatusType:      c.Required.StatusType,
		CustomSlugField: c.Permalink.SlugField,
		Groups:          c.Optional,
	}
}

// MarkdownPath returns the site-relative path of a record's markdown file.
func (c Collection) MarkdownPath(slug, date string) string {
	dir := c.Paths.Markdown
	if c.Paths.SlugSubfolder {
		dir = path.Join(dir, slug)
	}
	return path.Join(dir, naming.Filename(slug, date, c.Paths.DatePrefix))
}

// PermalinkProperty returns the url property written on publish.
func (c Collection) PermalinkProperty() string {
	if !c.Permalink.Publish {
		return ""
	}
	if c.Permalink.Property != "" {
		return c.Permalink.Property
	}
	return DefaultPermalinkProperty
}
