// Package sqlite stores encoded drafts in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	session_id TEXT NOT NULL,
	topic_id   TEXT NOT NULL,
	body       BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	PRIMARY KEY (session_id, topic_id)
)`

// DraftBlobs is a domain.DraftBlobStore over one SQLite table.
type DraftBlobs struct {
	db *sql.DB
}

// Open creates the database file and its table if missing.
func Open(ctx context.Context, path string) (*DraftBlobs, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return &DraftBlobs{db: db}, nil
}

func (s *DraftBlobs) Close() error {
	return s.db.Close()
}

func (s *DraftBlobs) Put(ctx context.Context, sessionID domain.SessionID, topicID domain.TopicID, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (session_id, topic_id, body) VALUES (?, ?, ?)
		ON CONFLICT (session_id, topic_id) DO UPDATE SET
			body = excluded.body,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		string(sessionID), string(topicID), data)
	if err != nil {
		return fmt.Errorf("put draft %s/%s: %w", sessionID, topicID, err)
	}
	return nil
}

func (s *DraftBlobs) Get(ctx context.Context, sessionID domain.SessionID, topicID domain.TopicID) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM drafts WHERE session_id = ? AND topic_id = ?`,
		string(sessionID), string(topicID)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft %s/%s: %w", sessionID, topicID, err)
	}
	return body, nil
}

func (s *DraftBlobs) Keys(ctx context.Context, sessionID domain.SessionID) ([]domain.TopicID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic_id FROM drafts WHERE session_id = ? ORDER BY topic_id`, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("list drafts %s: %w", sessionID, err)
	}
	defer rows.Close()

	keys := []domain.TopicID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list drafts %s: %w", sessionID, err)
		}
		keys = append(keys, domain.TopicID(id))
	}
	return keys, rows.Err()
}

func (s *DraftBlobs) Delete(ctx context.Context, sessionID domain.SessionID, topicID domain.TopicID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE session_id = ? AND topic_id = ?`, string(sessionID), string(topicID))
	if err != nil {
		return fmt.Errorf("delete draft %s/%s: %w", sessionID, topicID, err)
	}
	return nil
}
