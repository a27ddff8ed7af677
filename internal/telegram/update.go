// Package telegram covers the minimal slice of the bot API the webhook
// needs: decoding inbound updates and sending plain-text replies.
package telegram

import "strings"

// Update is an inbound webhook payload from the bot API.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is the message part of an update. Media messages carry their
// text in Caption instead of Text.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// ChatID returns the chat id of the update's message, if any.
func (u *Update) ChatID() (int64, bool) {
	if u.Message == nil {
		return 0, false
	}
	return u.Message.Chat.ID, true
}

// Content returns the message's text, falling back to the caption for
// media messages.
func (m *Message) Content() string {
	if text := strings.TrimSpace(m.Text); text != "" {
		return text
	}
	return strings.TrimSpace(m.Caption)
}
