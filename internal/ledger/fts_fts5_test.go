//go:build sqlite_fts5

package ledger

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM outputs_fts`).Scan(&count); err != nil {
		t.Fatalf("outputs_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := OutputRow{Path: "fts.md", Title: "FTS Output", Checksum: "f1", Tags: []string{"search"}, UpdatedAt: time.Now()}
	if err := db.UpsertOutput(row, "The exporter produces powerful static pages.", nil); err != nil {
		t.Fatalf("UpsertOutput: %v", err)
	}
	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "fts.md" || results[0].Snippet == "" {
		t.Errorf("results = %+v", results)
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertOutput(OutputRow{Path: "evo.md", Title: "Old", Checksum: "1", UpdatedAt: now}, "original text", nil)
	_ = db.UpsertOutput(OutputRow{Path: "evo.md", Title: "New", Checksum: "2", UpdatedAt: now}, "replacement text", nil)

	if results, _ := db.Search("original", 10); len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ := db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertOutput(OutputRow{Path: "gone.md", Checksum: "g", UpdatedAt: time.Now()}, "vanishing content", nil)
	_ = db.DeleteOutput("gone.md")
	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.Path == "gone.md" {
			t.Error("deleted output still in FTS index")
		}
	}
}
