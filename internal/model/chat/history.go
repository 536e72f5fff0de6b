package chat

import (
	"strings"
	"unicode/utf8"
)

// TitleLength is the number of runes of the initiating message kept as title.
const TitleLength = 20

// History is one triage conversation: a growing, chronologically ordered log of turns.
type History struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Department string    `json:"department"`
	Messages   []Message `json:"messages"`
	CreatedAt  int64     `json:"createdAt"`
	UpdatedAt  int64     `json:"updatedAt"`
}

// Summary is the list projection of a History.
type Summary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Department string `json:"department"`
	CreatedAt  int64  `json:"createdAt"`
}

// NewHistory starts an empty conversation titled after its first message.
func NewHistory(id, firstMessage string) History {
	now := NowMillis()
	return History{
		ID:        id,
		Title:     Title(firstMessage),
		Messages:  make([]Message, 0, 4),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Title truncates a message to TitleLength runes.
func Title(message string) string {
	trimmed := strings.TrimSpace(message)
	if utf8.RuneCountInString(trimmed) <= TitleLength {
		return trimmed
	}
	return strings.TrimSpace(string([]rune(trimmed)[:TitleLength]))
}

// Summary projects the history for list views.
func (h History) Summary() Summary {
	return Summary{
		ID:         h.ID,
		Title:      h.Title,
		Department: h.Department,
		CreatedAt:  h.CreatedAt,
	}
}

// Clone returns a copy that shares no message storage with h.
func (h History) Clone() History {
	cloned := h
	cloned.Messages = append(make([]Message, 0, len(h.Messages)+2), h.Messages...)
	return cloned
}

// LastAssistantMessage scans backwards for the most recent assistant turn.
func (h History) LastAssistantMessage() (Message, bool) {
	for i := len(h.Messages) - 1; i >= 0; i-- {
		if h.Messages[i].Role == RoleAssistant {
			return h.Messages[i], true
		}
	}
	return Message{}, false
}
