package chat

import (
	"context"
	"sort"
	"sync"

	"github.com/zhouzirui/medguide/backend/internal/model/chat"
)

// MemoryStore is the process-local Store. Nothing survives a restart.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]chat.History
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]chat.History),
	}
}

// Save upserts the conversation and returns the stored copy.
func (s *MemoryStore) Save(_ context.Context, history chat.History) (chat.History, error) {
	if history.ID == "" {
		return chat.History{}, ErrConversationIDEmpty
	}

	stored := history.Clone()
	stored.UpdatedAt = chat.NowMillis()

	s.mu.Lock()
	s.conversations[stored.ID] = stored
	s.mu.Unlock()

	return stored.Clone(), nil
}

// GetByID retrieves a conversation by identifier.
func (s *MemoryStore) GetByID(_ context.Context, id string) (chat.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.conversations[id]
	if !ok {
		return chat.History{}, ErrConversationNotFound
	}
	return history.Clone(), nil
}

// ListAll returns every conversation, most recently updated first.
func (s *MemoryStore) ListAll(_ context.Context) ([]chat.History, error) {
	s.mu.RLock()
	out := make([]chat.History, 0, len(s.conversations))
	for _, history := range s.conversations {
		out = append(out, history.Clone())
	}
	s.mu.RUnlock()

	sortByUpdatedDesc(out)
	return out, nil
}

// AppendMessage appends to the message log of an existing conversation.
func (s *MemoryStore) AppendMessage(_ context.Context, id string, message chat.Message) (chat.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.conversations[id]
	if !ok {
		return chat.History{}, ErrConversationNotFound
	}

	history = history.Clone()
	history.Messages = append(history.Messages, message)
	history.UpdatedAt = chat.NowMillis()
	s.conversations[id] = history

	return history.Clone(), nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }

func sortByUpdatedDesc(items []chat.History) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].UpdatedAt == items[j].UpdatedAt {
			return items[i].CreatedAt > items[j].CreatedAt
		}
		return items[i].UpdatedAt > items[j].UpdatedAt
	})
}
