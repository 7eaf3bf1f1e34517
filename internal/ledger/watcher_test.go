package ledger

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/notionsite/internal/storage"
)

var watchSources = []Source{{Dir: "src/blog", TitleKey: "title"}}

func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	blogDir := filepath.Join(store.Root(), "src", "blog")
	if err := os.MkdirAll(blogDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return blogDir, store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	blogDir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, store, watchSources, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(blogDir, "new.md"), []byte("---\ntitle: New\n---\nbody\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		o, _ := db.GetOutput("src/blog/new.md")
		return o != nil && o.Title == "New"
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:src/blog/new.md" {
				return true
			}
		}
		return false
	}, "expected created:src/blog/new.md callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	blogDir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, watchSources, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(blogDir, "nested-post")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(subDir, "nested-post.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("src/blog/nested-post/nested-post.md")
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	blogDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(blogDir, "del.md"), []byte("# Delete Me"), 0o644)
	_ = Sync(db, store, watchSources, quietLogger())
	if cs, _ := db.GetChecksum("src/blog/del.md"); cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, watchSources, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(blogDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("src/blog/del.md")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	blogDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(blogDir, "old.md"), []byte("# Rename"), 0o644)
	_ = Sync(db, store, watchSources, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, watchSources, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(blogDir, "old.md"), filepath.Join(blogDir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("src/blog/old.md")
		newCS, _ := db.GetChecksum("src/blog/renamed.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
