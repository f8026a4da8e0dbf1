package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/tickler/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// UpsertNote replaces a note row, its outgoing links, and its block anchors
// within one transaction.
func (db *DB) UpsertNote(n NoteRow, links []string, blocks []models.BlockAnchor) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(n.Tags)

	_, err = tx.Exec(`
		INSERT INTO notes (path, basename, title, checksum, tags, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			basename   = excluded.basename,
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			updated_at = excluded.updated_at
	`, n.Path, basename(n.Path), n.Title, n.Checksum, string(tagsJSON), n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(n.Path, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM blocks WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear blocks: %w", err)
	}
	if len(blocks) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO blocks (path, id, line, position) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare block insert: %w", err)
		}
		defer stmt.Close()
		for i, b := range blocks {
			if _, err := stmt.Exec(n.Path, b.ID, b.OwnerLine, i); err != nil {
				return fmt.Errorf("index: insert block: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note with its links and block anchors.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM blocks WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
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

// ListNotes returns a page of notes ordered by path, plus the total count.
func (db *DB) ListNotes(limit, offset int) ([]NoteRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT path, title, checksum, tags, updated_at
		FROM notes
		ORDER BY path
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var r NoteRow
		var tags string
		if err := rows.Scan(&r.Path, &r.Title, &r.Checksum, &tags, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(tags), &r.Tags)
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Backlinks returns all note paths whose wikilinks point at the note stored
// at path. A link may name the note by vault path (with or without .md) or
// by basename.
func (db *DB) Backlinks(path string) ([]string, error) {
	stem := strings.TrimSuffix(path, ".md")
	rows, err := db.conn.Query(`
		SELECT DISTINCT source FROM links
		WHERE target IN (?, ?, ?)
		ORDER BY source
	`, path, stem, basename(path))
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
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

// BlockAnchors returns the block anchor ids of a note in document order.
func (db *DB) BlockAnchors(path string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT id FROM blocks WHERE path = ? ORDER BY position`, path)
	if err != nil {
		return nil, fmt.Errorf("index: block anchors: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LinkText returns the shortest wikilink text that identifies the note at
// path: its basename when no other indexed note shares it, otherwise the
// vault path without the .md extension.
func (db *DB) LinkText(path string) (string, error) {
	base := basename(path)
	var n int
	err := db.conn.QueryRow(`SELECT count(*) FROM notes WHERE basename = ? AND path != ?`, base, path).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("index: link text: %w", err)
	}
	if n == 0 {
		return base, nil
	}
	return strings.TrimSuffix(path, ".md"), nil
}

func basename(p string) string {
	name := path.Base(p)
	return strings.TrimSuffix(name, path.Ext(name))
}
