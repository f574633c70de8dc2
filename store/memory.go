package store

import (
	"context"
	"sort"
	"sync"

	"ragchat-backend/models"
)

// MemoryStore keeps conversations in a mutex-guarded map. Conversations
// live until Clear is called or the process exits.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
	}
}

// Create implements ConversationStore.
func (s *MemoryStore) Create(_ context.Context, id, firstMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; ok {
		return nil
	}
	s.conversations[id] = &models.Conversation{
		ID:    id,
		Title: models.DeriveTitle(firstMessage),
		Turns: []models.ConversationTurn{},
	}
	return nil
}

// Append implements ConversationStore.
func (s *MemoryStore) Append(_ context.Context, id string, turn models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return ErrConversationNotFound
	}
	conv.Turns = append(conv.Turns, turn)
	return nil
}

// Get implements ConversationStore. The returned conversation is a copy;
// mutating it does not affect the store.
func (s *MemoryStore) Get(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	out := &models.Conversation{
		ID:    conv.ID,
		Title: conv.Title,
		Turns: append([]models.ConversationTurn{}, conv.Turns...),
	}
	return out, nil
}

// Exists implements ConversationStore.
func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conversations[id]
	return ok, nil
}

// List implements ConversationStore.
func (s *MemoryStore) List(_ context.Context) ([]models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, models.ConversationSummary{ID: conv.ID, Title: conv.Title})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Clear implements ConversationStore.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*models.Conversation)
	return nil
}
