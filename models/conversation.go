package models

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is a single message in a conversation. Immutable once
// appended.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered message history identified by an opaque id.
// The title is derived from the first user message.
type Conversation struct {
	ID    string             `json:"id"`
	Title string             `json:"title"`
	Turns []ConversationTurn `json:"messages"`
}

// ConversationSummary is the list-view projection of a conversation.
type ConversationSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

const titleMaxLen = 30

// DeriveTitle builds a conversation title from the first user message,
// truncated to 30 characters plus an ellipsis.
func DeriveTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen]) + "..."
	}
	return firstMessage
}
