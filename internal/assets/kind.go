// Package assets finds remote asset references in generated markdown,
// downloads them and rewrites the references to local paths.
package assets

import (
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/starford/notionsite/internal/naming"
)

// Kind is an asset family.
type Kind string

// Asset kinds, in processing order.
const (
	Image Kind = "image"
	PDF   Kind = "pdf"
	Movie Kind = "movie"
)

// Kinds lists the asset kinds in processing order.
var Kinds = []Kind{Image, PDF, Movie}

var defaultExt = map[Kind]string{
	Image: "jpg",
	PDF:   "pdf",
	Movie: "mp4",
}

// KindConfig places one asset kind on disk and in links.
type KindConfig struct {
	// DownloadDir is where files are written, relative to the site root.
	DownloadDir string `yaml:"download_dir"`
	// MarkdownPath prefixes the local filename in rewritten links.
	MarkdownPath  string `yaml:"markdown_path"`
	DatePrefix    bool   `yaml:"date_prefix"`
	SlugSubfolder bool   `yaml:"slug_subfolder"`
	// CopyToOutput copies DownloadDir into the site output after a pass.
	CopyToOutput bool `yaml:"copy_to_output"`
}

// Config holds per-kind settings.
type Config struct {
	Image KindConfig `yaml:"image"`
	PDF   KindConfig `yaml:"pdf"`
	Movie KindConfig `yaml:"movie"`
}

// For returns the settings of kind k.
func (c Config) For(k Kind) KindConfig {
	switch k {
	case PDF:
		return c.PDF
	case Movie:
		return c.Movie
	default:
		return c.Image
	}
}

// Dir returns the download directory for a record, with the slug subfolder
// appended when enabled.
func (k KindConfig) Dir(slug string) string {
	if k.SlugSubfolder {
		return filepath.Join(k.DownloadDir, slug)
	}
	return filepath.Clean(k.DownloadDir)
}

// Link returns the public markdown link for a localized file, mirroring Dir.
func (k KindConfig) Link(slug, filename string) string {
	if k.SlugSubfolder {
		return k.MarkdownPath + slug + "/" + filename
	}
	return k.MarkdownPath + filename
}

// LocalFilename returns "{date}_{slug}_{ordinal}.{ext}" when the date prefix
// is enabled and date is set, else "{slug}_{ordinal}.{ext}". The date keeps
// only its digits.
func LocalFilename(k KindConfig, slug, date string, ordinal int, ext string) string {
	name := slug + "_" + strconv.Itoa(ordinal) + "." + ext
	if k.DatePrefix && date != "" {
		return naming.DateDigits(date) + "_" + name
	}
	return name
}

// Extension derives a file extension from an asset URL: the path extension,
// then the "fm" format query parameter, then the kind default.
func Extension(kind Kind, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExt[kind]
	}
	if ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), ".")); isAlnum(ext) {
		return ext
	}
	if fm := strings.ToLower(u.Query().Get("fm")); isAlnum(fm) {
		return fm
	}
	return defaultExt[kind]
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
