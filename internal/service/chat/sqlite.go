package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/medguide/backend/internal/model/chat"
)

// SQLiteStore persists each conversation as a JSON blob keyed by id.
type SQLiteStore struct {
	db *sql.DB
	// serializes read-modify-write in AppendMessage to avoid SQLITE_BUSY
	writeMu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database file at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save upserts the conversation and refreshes UpdatedAt.
func (s *SQLiteStore) Save(ctx context.Context, history chat.History) (chat.History, error) {
	if history.ID == "" {
		return chat.History{}, ErrConversationIDEmpty
	}

	stored := history.Clone()
	stored.UpdatedAt = chat.NowMillis()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.upsert(ctx, s.db, stored); err != nil {
		return chat.History{}, err
	}
	return stored, nil
}

// GetByID loads a conversation by identifier.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (chat.History, error) {
	return s.load(ctx, s.db, id)
}

// ListAll returns every conversation, most recently updated first.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]chat.History, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM conversations ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]chat.History, 0, 16)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		var history chat.History
		if err := json.Unmarshal([]byte(payload), &history); err != nil {
			return nil, fmt.Errorf("decode conversation payload: %w", err)
		}
		out = append(out, history)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

// AppendMessage appends to an existing conversation inside a transaction.
func (s *SQLiteStore) AppendMessage(ctx context.Context, id string, message chat.Message) (chat.History, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.History{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	history, err := s.load(ctx, tx, id)
	if err != nil {
		return chat.History{}, err
	}

	history.Messages = append(history.Messages, message)
	history.UpdatedAt = chat.NowMillis()

	if err := s.upsert(ctx, tx, history); err != nil {
		return chat.History{}, err
	}
	if err := tx.Commit(); err != nil {
		return chat.History{}, fmt.Errorf("commit append: %w", err)
	}
	return history, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) upsert(ctx context.Context, q execQuerier, history chat.History) error {
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	query := `
	INSERT INTO conversations (id, payload, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at`

	if _, err := q.ExecContext(ctx, query, history.ID, string(payload), history.CreatedAt, history.UpdatedAt); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) load(ctx context.Context, q execQuerier, id string) (chat.History, error) {
	var payload string
	err := q.QueryRowContext(ctx, `SELECT payload FROM conversations WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.History{}, ErrConversationNotFound
	}
	if err != nil {
		return chat.History{}, fmt.Errorf("load conversation: %w", err)
	}

	var history chat.History
	if err := json.Unmarshal([]byte(payload), &history); err != nil {
		return chat.History{}, fmt.Errorf("decode conversation payload: %w", err)
	}
	return history, nil
}
