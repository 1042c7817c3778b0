package domain

import (
	"strings"
	"testing"
	"time"

	"messenger/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newTestMessage() Message {
	return NewMessage("Hello", "How are you?", uuid.New(), uuid.New(), nil)
}

func TestMessage_Validate(t *testing.T) {
	sender, recipient := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		subject string
		content string
		wantErr bool
	}{
		{name: "valid message", subject: "Hello", content: "Hi there"},
		{name: "missing subject", subject: "", content: "Hi there", wantErr: true},
		{name: "missing content", subject: "Hello", content: "", wantErr: true},
		{name: "blank subject", subject: "   ", content: "Hi there", wantErr: true},
		{name: "subject at the maximum", subject: strings.Repeat("a", MaxStringLength), content: "Hi"},
		{name: "subject one over the maximum", subject: strings.Repeat("a", MaxStringLength+1), content: "Hi", wantErr: true},
		{name: "content at the maximum", subject: "Hello", content: strings.Repeat("a", MaxContentLength)},
		{name: "content one over the maximum", subject: "Hello", content: strings.Repeat("a", MaxContentLength+1), wantErr: true},
		{name: "length counted in characters", subject: strings.Repeat("é", MaxStringLength), content: "Hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := NewMessage(tt.subject, tt.content, sender, recipient, nil).Validate()
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrValidation)
				return
			}
			req.NoError(err)
		})
	}
}

func TestMessage_Validate_Parties(t *testing.T) {
	req := require.New(t)
	same := uuid.New()

	req.ErrorIs(NewMessage("s", "c", same, same, nil).Validate(), errors.ErrValidation)
	req.ErrorIs(NewMessage("s", "c", uuid.Nil, same, nil).Validate(), errors.ErrValidation)
}

func TestMessage_Trash(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	cutoff := now.Add(-30 * 24 * time.Hour)
	message := newTestMessage()

	// Given the sender trashed the message
	req.NoError(message.Trash(Sender, &now))

	// Then only the sender sees it in the trash
	req.True(message.Trashed(Sender, cutoff))
	req.False(message.Trashed(Recipient, cutoff))

	// When the recipient trashes it too
	req.NoError(message.Trash(Recipient, &now))
	req.True(message.Trashed(Recipient, cutoff))

	// When the sender restores it, the recipient's trash is untouched
	req.NoError(message.Trash(Sender, nil))
	req.False(message.Trashed(Sender, cutoff))
	req.True(message.Trashed(Recipient, cutoff))
}

func TestMessage_Trash_Expired(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	retention := 30 * 24 * time.Hour
	message := newTestMessage()

	req.NoError(message.Trash(Sender, lo.ToPtr(now.Add(-retention-time.Minute))))

	req.NotNil(message.SenderDeletedAt)
	req.False(message.Trashed(Sender, now.Add(-retention)))
}

func TestMessage_Trash_UnknownParty(t *testing.T) {
	req := require.New(t)
	message := newTestMessage()

	err := message.Trash(Party(7), lo.ToPtr(time.Now()))

	req.ErrorIs(err, errors.ErrUnauthorized)
	req.Nil(message.SenderDeletedAt)
	req.Nil(message.RecipientDeletedAt)
}

func TestMessage_PartyOf(t *testing.T) {
	req := require.New(t)
	message := newTestMessage()

	party, err := message.PartyOf(message.SenderID)
	req.NoError(err)
	req.Equal(Sender, party)

	party, err = message.PartyOf(message.RecipientID)
	req.NoError(err)
	req.Equal(Recipient, party)

	_, err = message.PartyOf(uuid.New())
	req.ErrorIs(err, errors.ErrUnauthorized)
}

func TestMessage_Involves(t *testing.T) {
	req := require.New(t)
	message := newTestMessage()

	req.True(message.Involves(message.SenderID))
	req.True(message.Involves(message.RecipientID))
	req.False(message.Involves(uuid.New()))
}

func TestMessage_IsReplyTo(t *testing.T) {
	alice, bob, clara := uuid.New(), uuid.New(), uuid.New()
	parent := NewMessage("Hello", "Hi Bob", alice, bob, nil)
	parent.ID = uuid.New()

	tests := []struct {
		name     string
		reply    Message
		expected bool
	}{
		{name: "answer to the sender", reply: NewMessage("Re: Hello", "Hi Alice", bob, alice, &parent.ID), expected: true},
		{name: "second message in the same direction", reply: NewMessage("Re: Hello", "Again", alice, bob, &parent.ID), expected: true},
		{name: "no parent", reply: NewMessage("Re: Hello", "Hi Alice", bob, alice, nil), expected: false},
		{name: "third party joins", reply: NewMessage("Re: Hello", "Hi", clara, alice, &parent.ID), expected: false},
		{name: "other parent id", reply: NewMessage("Re: Hello", "Hi", bob, alice, lo.ToPtr(uuid.New())), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.reply.IsReplyTo(parent))
		})
	}
}

func TestMessage_MarkAsRead_IsIdempotent(t *testing.T) {
	req := require.New(t)
	message := newTestMessage()
	first := time.Now().Add(-time.Hour)

	req.False(message.IsRead())
	req.True(message.MarkAsRead(first))
	req.True(message.IsRead())

	req.False(message.MarkAsRead(time.Now()))
	req.Equal(first, *message.RecipientReadAt)
}

func TestMessage_IsRepliedTo(t *testing.T) {
	req := require.New(t)
	message := newTestMessage()

	req.False(message.IsRepliedTo())
	message.MarkRepliedTo(time.Now())
	req.True(message.IsRepliedTo())
}
