package domain

import "github.com/google/uuid"

// Notification tells a recipient that a message is waiting for them.
// It is never persisted.
type Notification struct {
	MessageID      uuid.UUID
	Subject        string
	Content        string
	SenderName     string
	RecipientName  string
	RecipientEmail string
	IsReply        bool
}

// NewNotification gathers everything a sender needs to reach the recipient.
func NewNotification(message Message, sender, recipient Person, isReply bool) Notification {
	return Notification{
		MessageID:      message.ID,
		Subject:        message.Subject,
		Content:        message.Content,
		SenderName:     sender.Name,
		RecipientName:  recipient.Name,
		RecipientEmail: recipient.Email,
		IsReply:        isReply,
	}
}
