package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/murkotick/draft-autosave-service/internal/pkg/clock"

	_ "modernc.org/sqlite"
)

// SQLite is a Journal backed by an embedded SQLite database.
type SQLite struct {
	db    *sql.DB
	clock clock.Clock
}

// OpenSQLite opens (or creates) the journal database at path.
func OpenSQLite(path string, clk clock.Clock) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent edits.
	db.SetMaxOpenConns(1)

	j, err := NewSQLite(db, clk)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// NewSQLite wraps an existing database and creates the journal table if needed.
func NewSQLite(db *sql.DB, clk clock.Clock) (*SQLite, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	s := &SQLite{db: db, clock: clk}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS draft_journal (
		draft_id   TEXT NOT NULL,
		field_name TEXT NOT NULL,
		value_json TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (draft_id, field_name)
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLite) Put(ctx context.Context, draftID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	now := s.clock.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO draft_journal (draft_id, field_name, value_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (draft_id, field_name) DO UPDATE SET
			value_json = excluded.value_json,
			updated_at = excluded.updated_at`
	for field, v := range fields {
		raw, err := encodeValue(field, v)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, draftID, field, raw, now); err != nil {
			return fmt.Errorf("journal: put %s/%s: %w", draftID, field, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Load(ctx context.Context, draftID string) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field_name, value_json FROM draft_journal WHERE draft_id = ?`, draftID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]any)
	for rows.Next() {
		var field, raw string
		if err := rows.Scan(&field, &raw); err != nil {
			return nil, err
		}
		v, err := decodeValue(field, raw)
		if err != nil {
			return nil, err
		}
		out[field] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) Discard(ctx context.Context, draftID string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)+1)
	args = append(args, draftID)
	for _, f := range fields {
		args = append(args, f)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(fields)), ",")
	query := `DELETE FROM draft_journal WHERE draft_id = ? AND field_name IN (` + placeholders + `)`
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLite) Purge(ctx context.Context, draftID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM draft_journal WHERE draft_id = ?`, draftID)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
