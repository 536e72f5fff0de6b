package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single immutable entry of a conversation log.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// NewMessage stamps a message with a fresh identifier and the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: NowMillis(),
	}
}

// NowMillis returns the current wall clock as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
