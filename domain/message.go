// Package domain contains core concepts of the messaging system.
// This file defines the Message entity and the rules of its lifecycle:
// validation, reply chain, per-party trash and read state.
// No storage, network, or delivery logic should be added here.
package domain

import (
	"fmt"
	"strings"
	"time"

	"messenger/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	// MaxStringLength bounds every short text column, subject included.
	MaxStringLength = 255
	// MaxContentLength is a reasonable limit on the body of a message.
	MaxContentLength = 1600
)

var validate = validator.New()

// Party designates one side of a message.
type Party int

const (
	Sender Party = iota
	Recipient
)

func (p Party) String() string {
	switch p {
	case Sender:
		return "sender"
	case Recipient:
		return "recipient"
	default:
		return fmt.Sprintf("party(%d)", int(p))
	}
}

// Valid reports whether p is one of the two parties of a message.
func (p Party) Valid() bool {
	return p == Sender || p == Recipient
}

// Message is a private message sent by one person to another.
// Timestamps left nil mean the event never happened.
type Message struct {
	ID                 uuid.UUID
	Subject            string `validate:"required,max=255"`
	Content            string `validate:"required,max=1600"`
	SenderID           uuid.UUID
	RecipientID        uuid.UUID
	ParentID           *uuid.UUID
	SenderDeletedAt    *time.Time
	SenderReadAt       *time.Time
	RecipientDeletedAt *time.Time
	RecipientReadAt    *time.Time
	RepliedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewMessage builds an unsaved message. The store assigns ID and timestamps.
func NewMessage(subject, content string, senderID, recipientID uuid.UUID, parentID *uuid.UUID) Message {
	return Message{
		Subject:     subject,
		Content:     content,
		SenderID:    senderID,
		RecipientID: recipientID,
		ParentID:    parentID,
	}
}

// Validate checks presence and length of subject and content.
// Lengths are counted in characters, not bytes.
func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if strings.TrimSpace(m.Subject) == "" || strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: subject and content can't be blank", errors.ErrValidation)
	}
	if m.SenderID == uuid.Nil || m.RecipientID == uuid.Nil {
		return fmt.Errorf("%w: sender and recipient are required", errors.ErrValidation)
	}
	if m.SenderID == m.RecipientID {
		return fmt.Errorf("%w: sender and recipient must differ", errors.ErrValidation)
	}
	return nil
}

// PersonID returns the person standing on the given side of the message.
func (m Message) PersonID(p Party) (uuid.UUID, error) {
	switch p {
	case Sender:
		return m.SenderID, nil
	case Recipient:
		return m.RecipientID, nil
	default:
		return uuid.Nil, errors.ErrUnauthorized
	}
}

// PartyOf resolves a person to its side of the message.
func (m Message) PartyOf(personID uuid.UUID) (Party, error) {
	switch personID {
	case m.SenderID:
		return Sender, nil
	case m.RecipientID:
		return Recipient, nil
	default:
		return 0, errors.ErrUnauthorized
	}
}

// Involves reports whether the person is the sender or the recipient.
func (m Message) Involves(personID uuid.UUID) bool {
	_, err := m.PartyOf(personID)
	return err == nil
}

// DeletedAt returns the deletion timestamp of the given party.
func (m Message) DeletedAt(p Party) *time.Time {
	switch p {
	case Sender:
		return m.SenderDeletedAt
	case Recipient:
		return m.RecipientDeletedAt
	default:
		return nil
	}
}

// Trash puts the message in the trash of the given party.
// A nil time takes the message out of the trash.
func (m *Message) Trash(p Party, at *time.Time) error {
	switch p {
	case Sender:
		m.SenderDeletedAt = at
	case Recipient:
		m.RecipientDeletedAt = at
	default:
		return fmt.Errorf("%w: %s", errors.ErrUnauthorized, p)
	}
	return nil
}

// Trashed reports whether the party trashed the message after cutoff.
// Deletions older than cutoff have expired and no longer count.
func (m Message) Trashed(p Party, cutoff time.Time) bool {
	deletedAt := m.DeletedAt(p)
	return deletedAt != nil && deletedAt.After(cutoff)
}

// IsReplyTo reports whether m is a valid reply to parent.
// People can send several replies to the same message, in which case the
// recipient is the same as the parent's. For most replies the recipient is
// the parent's sender. Comparing both pairs as sets handles the two cases.
func (m Message) IsReplyTo(parent Message) bool {
	if m.ParentID == nil || *m.ParentID != parent.ID {
		return false
	}
	pair := []uuid.UUID{m.SenderID, m.RecipientID}
	parentPair := []uuid.UUID{parent.SenderID, parent.RecipientID}
	return lo.Every(pair, parentPair) && lo.Every(parentPair, pair)
}

// IsRepliedTo reports whether a reply to m has been created.
func (m Message) IsRepliedTo() bool {
	return m.RepliedAt != nil
}

// IsRead reports whether the recipient read the message.
func (m Message) IsRead() bool {
	return m.RecipientReadAt != nil
}

// MarkAsRead records the first time the recipient read the message.
// It returns false when the message was already read.
func (m *Message) MarkAsRead(at time.Time) bool {
	if m.IsRead() {
		return false
	}
	m.RecipientReadAt = &at
	return true
}

// MarkRepliedTo records that a reply has been created.
func (m *Message) MarkRepliedTo(at time.Time) {
	m.RepliedAt = &at
}
