package store

import (
	"context"
	"errors"

	"ragchat-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversations in two tables:
//
//	conversations(id text primary key, title text not null)
//	conversation_turns(id bigserial primary key, conversation_id text
//	    references conversations(id) on delete cascade, role text not null,
//	    content text not null)
//
// Turn ordering is the serial insert order.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the conversation tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS conversation_turns (
			id BIGSERIAL PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL
		);`)
	return err
}

// Create implements ConversationStore.
func (s *PostgresStore) Create(ctx context.Context, id, firstMessage string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO conversations (id, title) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		id, models.DeriveTitle(firstMessage))
	return err
}

// Append implements ConversationStore.
func (s *PostgresStore) Append(ctx context.Context, id string, turn models.ConversationTurn) error {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrConversationNotFound
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO conversation_turns (conversation_id, role, content) VALUES ($1, $2, $3)`,
		id, string(turn.Role), turn.Content)
	return err
}

// Get implements ConversationStore.
func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	conv := &models.Conversation{ID: id, Turns: []models.ConversationTurn{}}
	err := s.db.QueryRow(ctx,
		`SELECT title FROM conversations WHERE id = $1`, id).Scan(&conv.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT role, content FROM conversation_turns WHERE conversation_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}
		conv.Turns = append(conv.Turns, models.ConversationTurn{
			Role:    models.Role(role),
			Content: content,
		})
	}
	return conv, rows.Err()
}

// Exists implements ConversationStore.
func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// List implements ConversationStore.
func (s *PostgresStore) List(ctx context.Context) ([]models.ConversationSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, title FROM conversations ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		if err := rows.Scan(&summary.ID, &summary.Title); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Clear implements ConversationStore.
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `TRUNCATE conversation_turns, conversations`)
	return err
}
