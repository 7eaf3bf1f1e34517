package ledger

import (
	"log/slog"
	"strings"
	"time"

	"github.com/starford/notionsite/internal/parser"
	"github.com/starford/notionsite/internal/storage"
)

// Sync walks the source directories and brings the output index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db Ledger, store storage.Provider, sources []Source, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{})
	for _, src := range sources {
		metas, err := store.List(strings.Trim(src.Dir, "/"))
		if err != nil {
			return err
		}
		for _, m := range metas {
			if _, dup := disk[m.Path]; dup {
				continue
			}
			disk[m.Path] = struct{}{}

			if checksums[m.Path] == m.Checksum {
				continue
			}
			data, err := store.Read(m.Path)
			if err != nil {
				logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
				continue
			}
			s, _ := sourceFor(sources, m.Path)
			if err := indexFile(db, m.Path, data, s.TitleKey, m.UpdatedAt); err != nil {
				logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: indexed", slog.String("path", m.Path))
			}
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteOutput(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses data and upserts it into the index.
func IndexFile(db Ledger, path string, data []byte, titleKey string) error {
	return indexFile(db, path, data, titleKey, time.Now().UTC())
}

func indexFile(db Ledger, path string, data []byte, titleKey string, updated time.Time) error {
	res, err := parser.Parse(data, titleKey)
	if err != nil {
		return err
	}
	row := OutputRow{
		Path:      path,
		Title:     res.Title,
		Permalink: res.Permalink,
		Checksum:  storage.Checksum(data),
		Tags:      res.Tags,
		UpdatedAt: updated,
	}
	return db.UpsertOutput(row, res.Body, res.Links)
}
