// Package store owns conversation histories. The default backend keeps them
// in memory for the process lifetime; a Postgres backend is available for
// deployments that need histories to survive restarts. There is no eviction
// or size cap in either backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"ragchat-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConversationNotFound is returned when a conversation id is unknown.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore is the shared mutable state of the chat pipeline.
// Implementations must support concurrent lookups and appends; appends to
// different conversations are independent.
type ConversationStore interface {
	// Create registers a new conversation with a title derived from the
	// first user message.
	Create(ctx context.Context, id, firstMessage string) error

	// Append adds a turn to an existing conversation.
	Append(ctx context.Context, id string, turn models.ConversationTurn) error

	// Get returns a copy of a conversation's full history.
	Get(ctx context.Context, id string) (*models.Conversation, error)

	// Exists reports whether a conversation id is known.
	Exists(ctx context.Context, id string) (bool, error)

	// List returns all conversation summaries sorted by id descending.
	List(ctx context.Context) ([]models.ConversationSummary, error)

	// Clear removes every conversation.
	Clear(ctx context.Context) error
}

// Backend selects a store implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
)

// New creates a conversation store for the selected backend.
func New(backend Backend, pool *pgxpool.Pool) (ConversationStore, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendPostgres:
		if pool == nil {
			return nil, errors.New("postgres conversation store requires a database pool")
		}
		return NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown conversation store backend: %s", backend)
	}
}
