// Package testutil provides shared test helpers for site trees, ledgers and
// pass runners.
package testutil

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/starford/notionsite/internal/ledger"
	"github.com/starford/notionsite/internal/models"
	"github.com/starford/notionsite/internal/pipeline"
	"github.com/starford/notionsite/internal/storage"
)

// TestLedger creates a temporary SQLite ledger that is automatically cleaned up.
func TestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notionsite-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := ledger.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSite creates a temporary site root with a storage provider.
func TestSite(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// Runner is a pass runner that writes Files to Store and reports one
// successful record per file. Err aborts the pass instead. When Release is
// non-nil, Run blocks until it is closed.
type Runner struct {
	Store   storage.Provider
	Files   map[string]string
	Err     error
	Release chan struct{}

	mu    sync.Mutex
	calls []string
}

// Run implements the service runner.
func (r *Runner) Run(_ context.Context, c pipeline.Collection) (*models.Pass, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c.PostType)
	r.mu.Unlock()
	if r.Release != nil {
		<-r.Release
	}

	now := time.Now().UTC()
	pass := &models.Pass{ID: "pass-" + c.PostType + "-" + now.Format("150405.000000000"), Collection: c.PostType, StartedAt: now, FinishedAt: &now}
	if r.Err != nil {
		pass.Status = models.PassAborted
		pass.Error = r.Err.Error()
		return pass, r.Err
	}
	pass.Status = models.PassCompleted

	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := r.Store.Write(p, []byte(r.Files[p])); err != nil {
			return nil, err
		}
		pass.Records = append(pass.Records, models.RecordOutcome{RecordID: p, Path: p, State: models.StateStatusUpdated})
		pass.Selected++
		pass.Succeeded++
	}
	return pass, nil
}

// Calls returns the post types Run was called with.
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
