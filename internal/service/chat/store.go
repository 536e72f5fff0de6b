package chat

import (
	"context"
	"errors"

	"github.com/zhouzirui/medguide/backend/internal/model/chat"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationIDEmpty  = errors.New("conversation id is required")
)

// Store keeps every conversation and its message log.
type Store interface {
	// Save upserts a conversation keyed by ID and refreshes UpdatedAt.
	Save(ctx context.Context, history chat.History) (chat.History, error)
	// GetByID returns ErrConversationNotFound for unknown identifiers.
	GetByID(ctx context.Context, id string) (chat.History, error)
	// ListAll orders conversations by UpdatedAt, newest first.
	ListAll(ctx context.Context) ([]chat.History, error)
	// AppendMessage adds a message to an existing conversation.
	AppendMessage(ctx context.Context, id string, message chat.Message) (chat.History, error)
	Close() error
}
