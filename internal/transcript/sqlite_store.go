// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/bartekus/gitexam/internal/gitrepo"
)

// defaultSQLitePath keeps the database inside .git so it never ends up
// staged or committed.
func defaultSQLitePath(repo *gitrepo.Repo) string {
	return filepath.Join(repo.GitDir, "gitexam.db")
}

// sqliteStore keeps transcripts in a local SQLite database. Unlike the notes
// store it also retains transcripts for work that was never committed.
type sqliteStore struct {
	db *sql.DB
}

func openSQLite(path string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &sqliteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS transcripts (
	commit_sha       TEXT PRIMARY KEY,
	transcript_id    TEXT NOT NULL,
	created_at_unix  INTEGER NOT NULL,
	body_json        TEXT NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *sqliteStore) Put(ctx context.Context, commit string, t *Transcript) error {
	data, err := t.Encode()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO transcripts (commit_sha, transcript_id, created_at_unix, body_json)
VALUES (?, ?, ?, ?)
ON CONFLICT(commit_sha) DO UPDATE SET
	transcript_id   = excluded.transcript_id,
	created_at_unix = excluded.created_at_unix,
	body_json       = excluded.body_json
`, commit, t.ID, t.Timestamp.Unix(), string(data))
	if err != nil {
		return fmt.Errorf("storing transcript for %s: %w", commit, err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, commit string) (*Transcript, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body_json FROM transcripts WHERE commit_sha = ?`, commit).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no transcript stored for %s", commit)
	}
	if err != nil {
		return nil, fmt.Errorf("loading transcript for %s: %w", commit, err)
	}
	return Decode([]byte(body))
}

func (s *sqliteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT commit_sha FROM transcripts ORDER BY created_at_unix DESC, commit_sha`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commits []string
	for rows.Next() {
		var sha string
		if err := rows.Scan(&sha); err != nil {
			return nil, err
		}
		commits = append(commits, sha)
	}
	return commits, rows.Err()
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
