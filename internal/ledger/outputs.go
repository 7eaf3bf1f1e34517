package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/notionsite/internal/apperr"
	"github.com/starford/notionsite/internal/parser"
)

// OutputRow represents a row in the outputs table.
type OutputRow struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Permalink string    `json:"permalink,omitempty"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertOutput inserts or replaces an output, its FTS entry and its asset
// references within a transaction.
func (db *DB) UpsertOutput(o OutputRow, body string, links []parser.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := o.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO outputs (path, title, permalink, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			permalink  = excluded.permalink,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, o.Path, o.Title, o.Permalink, o.Checksum, string(tagsJSON), body, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ledger: upsert output: %w", err)
	}

	// No-op when the FTS5 tag is absent.
	if err := ftsUpsert(tx, o.Path, o.Title, body, o.Tags); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM output_assets WHERE source = ?`, o.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO output_assets (source, destination, kind, remote) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("ledger: prepare asset insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(o.Path, l.Destination, l.Kind, l.Remote); err != nil {
				return fmt.Errorf("ledger: insert asset: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteOutput removes an output, its FTS entry and its asset references.
func (db *DB) DeleteOutput(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM output_assets WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM outputs WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum of an output, or empty string if
// not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM outputs WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed output.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM outputs`)
	if err != nil {
		return nil, fmt.Errorf("ledger: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetOutput returns one indexed output.
func (db *DB) GetOutput(path string) (*OutputRow, error) {
	var (
		o        OutputRow
		tagsJSON string
	)
	err := db.conn.QueryRow(`
		SELECT path, title, permalink, checksum, tags, updated_at
		FROM outputs WHERE path = ?`, path).
		Scan(&o.Path, &o.Title, &o.Permalink, &o.Checksum, &tagsJSON, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: output %s", apperr.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get output: %w", err)
	}
	_ = json.Unmarshal([]byte(tagsJSON), &o.Tags)
	return &o, nil
}

// ListOutputs returns outputs under prefix ordered by path, and the total
// count. An empty prefix lists everything.
func (db *DB) ListOutputs(prefix string, limit, offset int) ([]OutputRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	like := escapeLike(prefix) + "%"

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM outputs WHERE path LIKE ? ESCAPE '\'`, like).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ledger: count outputs: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, title, permalink, checksum, tags, updated_at
		FROM outputs
		WHERE path LIKE ? ESCAPE '\'
		ORDER BY path
		LIMIT ? OFFSET ?`, like, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: list outputs: %w", err)
	}
	defer rows.Close()

	var out []OutputRow
	for rows.Next() {
		var (
			o        OutputRow
			tagsJSON string
		)
		if err := rows.Scan(&o.Path, &o.Title, &o.Permalink, &o.Checksum, &tagsJSON, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &o.Tags)
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// AssetUsers returns every output path that references destination.
func (db *DB) AssetUsers(destination string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM output_assets WHERE destination = ? ORDER BY source`, destination)
	if err != nil {
		return nil, fmt.Errorf("ledger: asset users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RemoteAssets returns outputs that still link to remote assets, mapped to
// those destinations.
func (db *DB) RemoteAssets() (map[string][]string, error) {
	rows, err := db.conn.Query(`SELECT source, destination FROM output_assets WHERE remote = 1 ORDER BY source, destination`)
	if err != nil {
		return nil, fmt.Errorf("ledger: remote assets: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var src, dest string
		if err := rows.Scan(&src, &dest); err != nil {
			return nil, err
		}
		out[src] = append(out[src], dest)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(r)
}
