package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/townsquare-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS towns (
	id            TEXT PRIMARY KEY,
	friendly_name TEXT NOT NULL,
	is_public     BOOLEAN NOT NULL DEFAULT 0,
	capacity      INTEGER NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	town_id    TEXT NOT NULL,
	author_id  TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_town ON chat_messages(town_id, id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTown inserts a new town record.
func (s *SQLiteStore) CreateTown(ctx context.Context, rec *store.TownRecord) error {
	query := `
		INSERT INTO towns (id, friendly_name, is_public, capacity, password_hash)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.FriendlyName, rec.IsPublic, rec.Capacity, rec.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert town: %w", err)
	}
	return nil
}

// GetTown retrieves a town record by id.
func (s *SQLiteStore) GetTown(ctx context.Context, id string) (*store.TownRecord, error) {
	query := `
		SELECT id, friendly_name, is_public, capacity, password_hash, created_at
		FROM towns
		WHERE id = ?
	`
	var rec store.TownRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.FriendlyName,
		&rec.IsPublic,
		&rec.Capacity,
		&rec.PasswordHash,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query town: %w", err)
	}
	return &rec, nil
}

// UpdateTown overwrites friendly name and public flag of a town record.
func (s *SQLiteStore) UpdateTown(ctx context.Context, rec *store.TownRecord) error {
	query := `
		UPDATE towns
		SET friendly_name = ?, is_public = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, rec.FriendlyName, rec.IsPublic, rec.ID)
	if err != nil {
		return fmt.Errorf("update town: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteTown removes a town record and its chat log.
func (s *SQLiteStore) DeleteTown(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE town_id = ?`, id); err != nil {
		return fmt.Errorf("delete chat log: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM towns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete town: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListTowns lists all town records.
func (s *SQLiteStore) ListTowns(ctx context.Context) ([]*store.TownRecord, error) {
	query := `
		SELECT id, friendly_name, is_public, capacity, password_hash, created_at
		FROM towns
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query towns: %w", err)
	}
	defer rows.Close()

	var records []*store.TownRecord
	for rows.Next() {
		var rec store.TownRecord
		if err := rows.Scan(&rec.ID, &rec.FriendlyName, &rec.IsPublic, &rec.Capacity, &rec.PasswordHash, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan town: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// SaveChatMessage appends a chat message to the log.
func (s *SQLiteStore) SaveChatMessage(ctx context.Context, rec *store.ChatRecord) error {
	query := `
		INSERT INTO chat_messages (town_id, author_id, body, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, rec.TownID, rec.AuthorID, rec.Body, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// ListChatMessages returns the most recent messages for a town, newest
// first, up to limit.
func (s *SQLiteStore) ListChatMessages(ctx context.Context, townID string, limit int) ([]*store.ChatRecord, error) {
	query := `
		SELECT id, town_id, author_id, body, created_at
		FROM chat_messages
		WHERE town_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, townID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var records []*store.ChatRecord
	for rows.Next() {
		var rec store.ChatRecord
		if err := rows.Scan(&rec.ID, &rec.TownID, &rec.AuthorID, &rec.Body, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

var _ store.Store = (*SQLiteStore)(nil)
