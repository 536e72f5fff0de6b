package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleTruncatesByRune(t *testing.T) {
	assert.Equal(t, "두통", Title("  두통  "))

	long := "이틀째 계속되는 두통과 메스꺼움이 있고 어지러워요"
	got := Title(long)
	assert.Equal(t, TitleLength, len([]rune(got)))
	assert.Equal(t, string([]rune(long)[:TitleLength]), got)
}

func TestCloneDoesNotShareMessages(t *testing.T) {
	h := NewHistory("c-1", "기침")
	h.Messages = append(h.Messages, NewMessage(RoleUser, "기침"))

	cloned := h.Clone()
	cloned.Messages[0].Content = "changed"
	cloned.Messages = append(cloned.Messages, NewMessage(RoleAssistant, "{}"))

	require.Len(t, h.Messages, 1)
	assert.Equal(t, "기침", h.Messages[0].Content)
}

func TestLastAssistantMessage(t *testing.T) {
	h := NewHistory("c-1", "hi")
	_, ok := h.LastAssistantMessage()
	assert.False(t, ok)

	h.Messages = []Message{
		{ID: "1", Role: RoleUser, Content: "a"},
		{ID: "2", Role: RoleAssistant, Content: "first"},
		{ID: "3", Role: RoleUser, Content: "b"},
		{ID: "4", Role: RoleAssistant, Content: "second"},
		{ID: "5", Role: RoleUser, Content: "c"},
	}
	msg, ok := h.LastAssistantMessage()
	require.True(t, ok)
	assert.Equal(t, "second", msg.Content)
}
