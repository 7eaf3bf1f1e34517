package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notionsite/internal/assets"
	"github.com/starford/notionsite/internal/notion"
	"github.com/starford/notionsite/internal/pipeline"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig     `yaml:"app"`
	Notion      NotionConfig          `yaml:"notion"`
	Collections []pipeline.Collection `yaml:"collections"`
	Naming      NamingConfig          `yaml:"naming"`
	Site        SiteConfig            `yaml:"site"`
	Assets      AssetsConfig          `yaml:"assets"`
	Ledger      LedgerConfig          `yaml:"ledger"`
	Metrics     MetricsConfig         `yaml:"metrics"`
	Auth        AuthConfig            `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Notion.Validate(); err != nil {
		return err
	}
	if err := validateCollections(c.Collections); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := c.Ledger.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// Collection returns the configuration of a post type.
func (c *Config) Collection(postType string) (pipeline.Collection, bool) {
	for _, col := range c.Collections {
		if col.PostType == postType {
			return col, true
		}
	}
	return pipeline.Collection{}, false
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NotionConfig holds the content-store client configuration.
type NotionConfig struct {
	Token   string        `yaml:"token"`
	BaseURL string        `yaml:"base_url"`
	Version string        `yaml:"version"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the content-store configuration.
func (c *NotionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// validateCollections checks every collection and rejects duplicate post
// types.
func validateCollections(cols []pipeline.Collection) error {
	if len(cols) == 0 {
		return fmt.Errorf("collections: at least one collection is required")
	}
	seen := make(map[string]bool, len(cols))
	for i := range cols {
		if err := validateCollection(&cols[i]); err != nil {
			return fmt.Errorf("collections[%d]: %w", i, err)
		}
		if seen[cols[i].PostType] {
			return fmt.Errorf("collections[%d]: duplicate post_type %q", i, cols[i].PostType)
		}
		seen[cols[i].PostType] = true
	}
	return nil
}

func validateCollection(c *pipeline.Collection) error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.PostType, validation.Required),
		validation.Field(&c.DatabaseID, validation.Required),
	); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.Required,
		validation.Field(&c.Required.Title, validation.Required),
		validation.Field(&c.Required.Status, validation.Required),
		validation.Field(&c.Required.StatusType, validation.Required, validation.In(notion.StatusTypeStatus, notion.StatusTypeSelect)),
	); err != nil {
		return fmt.Errorf("required: %w", err)
	}
	if err := validation.ValidateStruct(&c.StatusValues,
		validation.Field(&c.StatusValues.Check, validation.Required),
		validation.Field(&c.StatusValues.Update, validation.Required),
	); err != nil {
		return fmt.Errorf("status_values: %w", err)
	}
	if err := validation.ValidateStruct(&c.Paths,
		validation.Field(&c.Paths.Markdown, validation.Required),
	); err != nil {
		return fmt.Errorf("paths: %w", err)
	}
	for _, k := range assets.Kinds {
		kc := c.Assets.For(k)
		if err := validation.ValidateStruct(&kc,
			validation.Field(&kc.DownloadDir, validation.Required),
			validation.Field(&kc.MarkdownPath, validation.Required),
		); err != nil {
			return fmt.Errorf("assets.%s: %w", k, err)
		}
	}
	return nil
}

// NamingConfig holds slug options shared by every collection.
type NamingConfig struct {
	// ExpandUmlauts spells ä, ö and ü as ae, oe and ue instead of folding
	// them to their base letter.
	ExpandUmlauts bool `yaml:"expand_umlauts"`
}

// SiteConfig locates the site tree.
type SiteConfig struct {
	// Root is the directory markdown paths and download dirs are relative to.
	Root string `yaml:"root"`
	// OutputDir receives asset passthrough copies; empty disables them.
	OutputDir string `yaml:"output_dir"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
	)
}

// AssetsConfig bounds asset downloads.
type AssetsConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	MaxSize int64         `yaml:"max_size"`
}

// LedgerConfig holds the SQLite ledger location.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the ledger configuration.
func (c *LedgerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// MetricsConfig toggles the Prometheus recorder and the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
// Collections have no defaults and come from the file.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Notion: NotionConfig{
			BaseURL: notion.DefaultBaseURL,
			Version: notion.DefaultVersion,
			Timeout: 30 * time.Second,
		},
		Site: SiteConfig{
			Root: ".",
		},
		Assets: AssetsConfig{
			Timeout: 2 * time.Minute,
			MaxSize: assets.DefaultMaxSize,
		},
		Ledger: LedgerConfig{
			Path: "./notionsite.db",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
