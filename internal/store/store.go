// Package store records the element lists and measurements a host receives
// from editor sessions in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/siteplan/internal/export"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a session has no recorded revision.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS revisions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT    NOT NULL,
    elements   TEXT    NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS revisions_session ON revisions (session_id, id);

CREATE TABLE IF NOT EXISTS measurements (
    session_id TEXT NOT NULL,
    object_id  TEXT NOT NULL,
    type       TEXT NOT NULL,
    area       REAL NOT NULL DEFAULT 0,
    perimeter  REAL NOT NULL DEFAULT 0,
    length     REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (session_id, object_id)
);
`

// Revision is one recorded element list.
type Revision struct {
	Seq       int64                   `json:"seq"`
	SessionID string                  `json:"sessionId"`
	Elements  []export.DrawingElement `json:"elements"`
	CreatedAt time.Time               `json:"createdAt"`
}

// Store is the SQLite backed recorder.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an open database. Call Init before use.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s := New(db)
	if err := s.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLite opens the sqlite database at dbPath, creating its directory.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Init applies the schema.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveElements appends a revision for sessionID and returns its sequence.
func (s *Store) SaveElements(ctx context.Context, sessionID string, elements []export.DrawingElement) (int64, error) {
	if elements == nil {
		elements = []export.DrawingElement{}
	}
	data, err := json.Marshal(elements)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO revisions (session_id, elements, created_at)
        VALUES (?, ?, ?)
    `, sessionID, string(data), s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("save elements: %w", err)
	}
	return res.LastInsertId()
}

// Latest returns the newest revision of sessionID.
func (s *Store) Latest(ctx context.Context, sessionID string) (Revision, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, session_id, elements, created_at
        FROM revisions
        WHERE session_id = ?
        ORDER BY id DESC
        LIMIT 1
    `, sessionID)
	rev, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return rev, err
}

// History returns up to limit revisions of sessionID, newest first.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, session_id, elements, created_at
        FROM revisions
        WHERE session_id = ?
        ORDER BY id DESC
        LIMIT ?
    `, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(row scanner) (Revision, error) {
	var (
		rev     Revision
		data    string
		created int64
	)
	if err := row.Scan(&rev.Seq, &rev.SessionID, &data, &created); err != nil {
		return Revision{}, err
	}
	if err := json.Unmarshal([]byte(data), &rev.Elements); err != nil {
		return Revision{}, fmt.Errorf("revision %d: %w", rev.Seq, err)
	}
	rev.CreatedAt = time.UnixMilli(created)
	return rev, nil
}

// SaveMeasurement records the latest measurement of one object.
func (s *Store) SaveMeasurement(ctx context.Context, sessionID string, m export.Measurement) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO measurements (session_id, object_id, type, area, perimeter, length)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (session_id, object_id) DO UPDATE SET
            type = excluded.type,
            area = excluded.area,
            perimeter = excluded.perimeter,
            length = excluded.length
    `, sessionID, m.ID, m.Type, m.Area, m.Perimeter, m.Length)
	if err != nil {
		return fmt.Errorf("save measurement: %w", err)
	}
	return nil
}

// Measurements lists the recorded measurements of sessionID by object id.
func (s *Store) Measurements(ctx context.Context, sessionID string) ([]export.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT object_id, type, area, perimeter, length
        FROM measurements
        WHERE session_id = ?
        ORDER BY object_id
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []export.Measurement
	for rows.Next() {
		var m export.Measurement
		if err := rows.Scan(&m.ID, &m.Type, &m.Area, &m.Perimeter, &m.Length); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteSession removes everything recorded for sessionID.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM revisions WHERE session_id = ?`,
		`DELETE FROM measurements WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, sessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return tx.Commit()
}
