package app

import (
	"strings"

	"tesebook/pkg/domain"
)

// ConversationMessages returns the feed of one conversation, oldest first.
// Conversations live in process memory only; there is no table persistence
// or delivery to the peer yet.
func (a *App) ConversationMessages(conversationID string) []domain.ChatMessage {
	return a.feeds.Get(conversationID).Messages()
}

// SendMessage appends one sent message to the conversation feed.
// Whitespace-only text is rejected without touching the feed.
func (a *App) SendMessage(conversationID, text string) (domain.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, ErrMessageEmpty
	}
	msg, _ := a.feeds.Get(conversationID).Send(text)
	return msg, nil
}
