package ledger

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notionsite/internal/storage"
)

// Output change kinds passed to EventCallback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch watches the source directories under the store root and keeps the
// output index current until ctx is cancelled. Source directories are
// created when missing. cb, when non-nil, is called after each index
// change.
func Watch(ctx context.Context, db Ledger, store storage.Provider, sources []Source, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	for _, s := range sources {
		dir := filepath.Join(root, filepath.FromSlash(strings.Trim(s.Dir, "/")))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := addDirsRecursive(w, dir); err != nil {
			return err
		}
	}
	logger.Info("watcher: started", slog.String("root", root), slog.Int("sources", len(sources)))

	notify := func(kind, rel string) {
		if cb != nil {
			cb(kind, rel)
		}
	}

	var (
		reconcileTimer *time.Timer
		reconcileCh    <-chan time.Time
	)
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, sources, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					indexNewDir(db, store, sources, absPath, logger, notify)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") || strings.HasPrefix(filepath.Base(absPath), ".") {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			src, ok := sourceFor(sources, rel)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				prev, _ := db.GetChecksum(rel)
				if prev == storage.Checksum(data) {
					continue
				}
				kind := ChangeUpdated
				if prev == "" {
					kind = ChangeCreated
				}
				if idxErr := IndexFile(db, rel, data, src.TitleKey); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				notify(kind, rel)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteOutput(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				notify(ChangeDeleted, rel)

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives as Create.
				if delErr := db.DeleteOutput(rel); delErr == nil {
					notify(ChangeDeleted, rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes index entries without a file on disk and indexes files
// that are missing or changed.
func reconcile(db Ledger, store storage.Provider, sources []Source, logger *slog.Logger, notify EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string)
	for _, s := range sources {
		metas, err := store.List(strings.Trim(s.Dir, "/"))
		if err != nil {
			logger.Warn("reconcile: list failed", slog.String("dir", s.Dir), slog.String("error", err.Error()))
			return
		}
		for _, m := range metas {
			disk[m.Path] = m.Checksum
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteOutput(p); delErr == nil {
				notify(ChangeDeleted, p)
			}
		}
	}
	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		data, readErr := store.Read(p)
		if readErr != nil {
			continue
		}
		src, _ := sourceFor(sources, p)
		if idxErr := IndexFile(db, p, data, src.TitleKey); idxErr == nil {
			notify(ChangeCreated, p)
		}
	}
}

// indexNewDir indexes any .md files found in a newly created directory.
func indexNewDir(db Ledger, store storage.Provider, sources []Source, dirPath string, logger *slog.Logger, notify EventCallback) {
	root := store.Root()
	_ = filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		src, ok := sourceFor(sources, rel)
		if !ok {
			return nil
		}
		data, readErr := store.Read(rel)
		if readErr != nil {
			return nil
		}
		if idxErr := IndexFile(db, rel, data, src.TitleKey); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			notify(ChangeCreated, rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
