package telegram

import (
	tele "gopkg.in/telebot.v3"
)

// Check if the chat is allowed
func allowedChats(chatID int64, chat *tele.Chat) bool {
	if chat == nil {
		return false
	}

	return chat.Private || chatID == 0 || chat.ID == chatID
}

// Allowed chats middleware - serve only private chats and the configured chat
func allowedChatsMiddleware(chatID int64) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !allowedChats(chatID, c.Chat()) {
				return nil // Skip the current message
			}

			return next(c)
		}
	}
}

// Display name of the sender for ban records
func senderName(user *tele.User) string {
	if user == nil {
		return "telegram"
	}

	if user.Username != "" {
		return "telegram: @" + user.Username
	}

	return "telegram: " + user.Recipient()
}
