package ledger

import (
	"path"
	"strings"

	"github.com/starford/notionsite/internal/models"
	"github.com/starford/notionsite/internal/parser"
)

// Ledger defines the pass history and output index operations.
// Consumers depend on this interface rather than the concrete *DB type.
type Ledger interface {
	SavePass(p *models.Pass) error
	GetPass(id string) (*models.Pass, error)
	ListPasses(collection string, limit, offset int) ([]models.Pass, int, error)

	UpsertOutput(o OutputRow, body string, links []parser.Link) error
	DeleteOutput(path string) error
	GetChecksum(path string) (string, error)
	GetOutput(path string) (*OutputRow, error)
	ListOutputs(prefix string, limit, offset int) ([]OutputRow, int, error)
	AllChecksums() (map[string]string, error)
	AssetUsers(destination string) ([]string, error)
	RemoteAssets() (map[string][]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

var _ Ledger = (*DB)(nil)

// Source is a markdown directory of one collection. TitleKey is the header
// key holding the title.
type Source struct {
	Dir      string
	TitleKey string
}

// sourceFor returns the source whose directory contains rel, preferring the
// deepest one.
func sourceFor(sources []Source, rel string) (Source, bool) {
	var (
		best  Source
		found bool
	)
	for _, s := range sources {
		dir := strings.Trim(path.Clean("/"+s.Dir), "/")
		if dir != "" && rel != dir && !strings.HasPrefix(rel, dir+"/") {
			continue
		}
		if !found || len(dir) > len(strings.Trim(path.Clean("/"+best.Dir), "/")) {
			best, found = s, true
		}
	}
	return best, found
}
