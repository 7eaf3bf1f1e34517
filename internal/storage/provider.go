// Package storage defines the site content tree abstraction that generated
// markdown files are written to.
package storage

import "github.com/starford/notionsite/internal/models"

// Provider is the interface for site tree file operations. Paths are
// relative to the site root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.OutputMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Root returns the absolute site root.
	Root() string
}
