package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// TownRecord is the persisted part of a town: the directory entry and its
// update-password hash. Live session state is never persisted; a restarted
// server recreates every town empty.
type TownRecord struct {
	ID           string
	FriendlyName string
	IsPublic     bool
	Capacity     int
	PasswordHash string
	CreatedAt    time.Time
}

// ChatRecord is one relayed chat message, kept as an audit log. It is never
// replayed into sessions.
type ChatRecord struct {
	ID        int64
	TownID    string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// TownStore handles town directory persistence.
type TownStore interface {
	// CreateTown inserts a new town record.
	CreateTown(ctx context.Context, rec *TownRecord) error

	// GetTown retrieves a town record by id.
	GetTown(ctx context.Context, id string) (*TownRecord, error)

	// UpdateTown overwrites friendly name and public flag of a town record.
	UpdateTown(ctx context.Context, rec *TownRecord) error

	// DeleteTown removes a town record and its chat log.
	DeleteTown(ctx context.Context, id string) error

	// ListTowns lists all town records.
	ListTowns(ctx context.Context) ([]*TownRecord, error)
}

// ChatLogStore handles the chat audit log.
type ChatLogStore interface {
	// SaveChatMessage appends a chat message to the log.
	SaveChatMessage(ctx context.Context, rec *ChatRecord) error

	// ListChatMessages returns the most recent messages for a town, newest
	// first, up to limit.
	ListChatMessages(ctx context.Context, townID string, limit int) ([]*ChatRecord, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	TownStore
	ChatLogStore

	// Close closes the underlying database connection.
	Close() error
}
