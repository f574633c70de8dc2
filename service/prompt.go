package service

import (
	"fmt"
	"strings"

	"ragchat-backend/models"
	"ragchat-backend/persona"
)

// historyWindow is the number of most recent turns rendered into a prompt.
const historyWindow = 10

// BuildChatPrompt composes the persona system prompt, the most recent
// conversation turns, the user question, the retrieved context and the
// citation list into the final generation prompt.
func BuildChatPrompt(history []models.ConversationTurn, userInput, context string, citations []models.Citation, p models.Persona) string {
	truncated := history
	if len(truncated) > historyWindow {
		truncated = truncated[len(truncated)-historyWindow:]
	}

	var historyText strings.Builder
	for i, turn := range truncated {
		if i > 0 {
			historyText.WriteString("\n")
		}
		label := "【助手】"
		if turn.Role == models.RoleUser {
			label = "【用户】"
		}
		historyText.WriteString(label + turn.Content)
	}

	var citationText strings.Builder
	for i, c := range citations {
		if i > 0 {
			citationText.WriteString("\n")
		}
		citationText.WriteString(fmt.Sprintf("[%d] %s (来源: %s)", c.Ordinal, c.Snippet, c.Link))
	}

	historyBlock := historyText.String()
	if historyBlock == "" {
		historyBlock = "（无）"
	}

	return fmt.Sprintf(`%s

【对话历史】
%s

【用户问题】
%s

【参考上下文】
%s

【引用】
%s

请回答：
`, persona.SystemPrompt(p), historyBlock, userInput, context, citationText.String())
}
