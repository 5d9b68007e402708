// Package history persists finished chat turns in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"chatd/internal/common/fsutil"
	"chatd/internal/generate"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one stored message.
type Message struct {
	ID        int64
	Role      string
	Content   string
	CreatedAt time.Time
}

// Session is a session with its messages, oldest first.
type Session struct {
	ID        string
	CreatedAt time.Time
	Messages  []Message
}

// SQLiteStore is the durable history store.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	mu     sync.RWMutex
	closed bool
}

// Open opens (and initializes) the SQLite database at path. "~" is expanded
// and missing parent directories are created.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("history: empty database path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := fsutil.EnsureParentDir(p); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", p))
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", p, err)
	}
	// One writer at a time keeps SQLITE_BUSY out of AppendTurn.
	db.SetMaxOpenConns(1)
	if err := bootstrap(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func bootstrap(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL;`); err != nil {
		return fmt.Errorf("history: configure database: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at, id);
	`); err != nil {
		return fmt.Errorf("history: create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) acquire() (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, errors.New("history store is closed")
	}
	return s.mu.RUnlock, nil
}

// AppendTurn stores the user prompt and the assistant reply of one finished
// run, creating the session row on first use. Both messages are written in a
// single transaction.
func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID, prompt, reply string) error {
	if sessionID == "" {
		return generate.NewError(generate.KindPersistence, "append turn", errors.New("empty session id"))
	}
	unlock, err := s.acquire()
	if err != nil {
		return generate.NewError(generate.KindPersistence, "append turn", err)
	}
	defer unlock()

	if err := s.appendTurn(ctx, sessionID, prompt, reply); err != nil {
		return generate.NewError(generate.KindPersistence, "append turn", err)
	}
	return nil
}

func (s *SQLiteStore) appendTurn(ctx context.Context, sessionID, prompt, reply string) error {
	ts := s.now().UnixMilli()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)`, sessionID, ts); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()
	if _, err := stmt.ExecContext(ctx, sessionID, RoleUser, prompt, ts); err != nil {
		return fmt.Errorf("insert user message: %w", err)
	}
	if _, err := stmt.ExecContext(ctx, sessionID, RoleAssistant, reply, ts); err != nil {
		return fmt.Errorf("insert assistant message: %w", err)
	}
	return tx.Commit()
}

// LoadAll returns every session, newest first, with messages oldest first.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]Session, error) {
	unlock, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, m.id, m.role, m.content, m.created_at
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.id
		ORDER BY s.created_at DESC, s.rowid DESC, m.created_at ASC, m.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("history: query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sid      string
			sCreated int64
			mid      sql.NullInt64
			role     sql.NullString
			content  sql.NullString
			mCreated sql.NullInt64
		)
		if err := rows.Scan(&sid, &sCreated, &mid, &role, &content, &mCreated); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != sid {
			out = append(out, Session{ID: sid, CreatedAt: time.UnixMilli(sCreated).UTC()})
		}
		if !mid.Valid {
			continue
		}
		cur := &out[len(out)-1]
		cur.Messages = append(cur.Messages, Message{
			ID:        mid.Int64,
			Role:      role.String,
			Content:   content.String,
			CreatedAt: time.UnixMilli(mCreated.Int64).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate rows: %w", err)
	}
	return out, nil
}

// Close releases the database. Later calls fail.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
