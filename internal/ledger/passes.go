package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/notionsite/internal/apperr"
	"github.com/starford/notionsite/internal/models"
)

// SavePass inserts or replaces a pass and its record outcomes within a
// transaction.
func (db *DB) SavePass(p *models.Pass) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var finished sql.NullTime
	if p.FinishedAt != nil {
		finished = sql.NullTime{Time: *p.FinishedAt, Valid: true}
	}
	_, err = tx.Exec(`
		INSERT INTO passes (id, collection, status, started_at, finished_at, selected, succeeded, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status      = excluded.status,
			finished_at = excluded.finished_at,
			selected    = excluded.selected,
			succeeded   = excluded.succeeded,
			failed      = excluded.failed,
			error       = excluded.error
	`, p.ID, p.Collection, p.Status, p.StartedAt, finished, p.Selected, p.Succeeded, p.Failed, p.Error)
	if err != nil {
		return fmt.Errorf("ledger: upsert pass: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM record_outcomes WHERE pass_id = ?`, p.ID); err != nil {
		return fmt.Errorf("ledger: clear outcomes: %w", err)
	}
	if len(p.Records) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO record_outcomes
				(pass_id, seq, record_id, title, path, state, stage, error, assets_localized, asset_failures, relations_failed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("ledger: prepare outcome insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range p.Records {
			failures := r.AssetFailures
			if failures == nil {
				failures = []models.AssetFailure{}
			}
			failuresJSON, _ := json.Marshal(failures)
			if _, err := stmt.Exec(p.ID, i, r.RecordID, r.Title, r.Path, r.State, r.Stage, r.Error,
				r.AssetsLocalized, string(failuresJSON), r.RelationsFailed); err != nil {
				return fmt.Errorf("ledger: insert outcome: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetPass returns a pass with its record outcomes.
func (db *DB) GetPass(id string) (*models.Pass, error) {
	row := db.conn.QueryRow(`
		SELECT id, collection, status, started_at, finished_at, selected, succeeded, failed, error
		FROM passes WHERE id = ?`, id)
	p, err := scanPass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pass %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get pass: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT record_id, title, path, state, stage, error, assets_localized, asset_failures, relations_failed
		FROM record_outcomes WHERE pass_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("ledger: get outcomes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		r := models.RecordOutcome{PassID: id}
		var failuresJSON string
		if err := rows.Scan(&r.RecordID, &r.Title, &r.Path, &r.State, &r.Stage, &r.Error,
			&r.AssetsLocalized, &failuresJSON, &r.RelationsFailed); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(failuresJSON), &r.AssetFailures)
		p.Records = append(p.Records, r)
	}
	return p, rows.Err()
}

// ListPasses returns passes newest first, without record outcomes, and the
// total count. An empty collection lists every collection.
func (db *DB) ListPasses(collection string, limit, offset int) ([]models.Pass, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where := ""
	args := []any{}
	if collection != "" {
		where = "WHERE collection = ?"
		args = append(args, collection)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM passes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ledger: count passes: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, collection, status, started_at, finished_at, selected, succeeded, failed, error
		FROM passes `+where+`
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: list passes: %w", err)
	}
	defer rows.Close()

	var out []models.Pass
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPass(s scanner) (*models.Pass, error) {
	var (
		p        models.Pass
		finished sql.NullTime
	)
	if err := s.Scan(&p.ID, &p.Collection, &p.Status, &p.StartedAt, &finished,
		&p.Selected, &p.Succeeded, &p.Failed, &p.Error); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		p.FinishedAt = &t
	}
	return &p, nil
}
