package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"messenger/contract"
	"messenger/domain"
	"messenger/domain/search"
	"messenger/errors"
	"messenger/observability"
	"messenger/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultTrashRetention is how long a trashed message stays in the trash.
const DefaultTrashRetention = 30 * 24 * time.Hour

type IMessageService interface {
	Create(ctx context.Context, cmd CreateMessageCommand) (domain.Message, error)
	Reply(ctx context.Context, cmd ReplyCommand) (domain.Message, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Message, error)
	Read(ctx context.Context, id, personID uuid.UUID) (domain.Message, error)
	Trash(ctx context.Context, id uuid.UUID, party domain.Party, at time.Time) (domain.Message, error)
	TrashFor(ctx context.Context, id, personID uuid.UUID, at time.Time) (domain.Message, error)
	Untrash(ctx context.Context, id uuid.UUID, party domain.Party) (bool, error)
	UntrashFor(ctx context.Context, id, personID uuid.UUID) (bool, error)
	Trashed(message domain.Message, party domain.Party) bool
	MarkAsRead(ctx context.Context, id uuid.UUID, at time.Time) (domain.Message, error)
	Inbox(ctx context.Context, personID uuid.UUID, cursor *string) ([]domain.Message, *string, error)
	Sent(ctx context.Context, personID uuid.UUID, cursor *string) ([]domain.Message, *string, error)
	TrashBox(ctx context.Context, personID uuid.UUID, cursor *string) ([]domain.Message, *string, error)
	Replies(ctx context.Context, id uuid.UUID, cursor *string) ([]domain.Message, *string, error)
	UnreadCount(ctx context.Context, personID uuid.UUID) (int, error)
	Search(ctx context.Context, personID uuid.UUID, input string) ([]domain.Message, error)
}

// CreateMessageCommand carries a new message. SkipNotification is never
// persisted: it only tells Create not to notify the recipient.
type CreateMessageCommand struct {
	Subject          string
	Content          string
	SenderID         uuid.UUID
	RecipientID      uuid.UUID
	ParentID         *uuid.UUID
	SkipNotification bool
}

// ReplyCommand answers an existing message. The recipient is the other
// party of the parent; an empty subject is derived from the parent's.
type ReplyCommand struct {
	ParentID         uuid.UUID
	SenderID         uuid.UUID
	Subject          string
	Content          string
	SkipNotification bool
}

type MessageService struct {
	store          *repositories.Store
	notifications  contract.NotificationQueue
	indexer        contract.Indexer
	metrics        *observability.Metrics
	log            *slog.Logger
	trashRetention time.Duration
	now            func() time.Time
}

func NewMessageService(store *repositories.Store, notifications contract.NotificationQueue,
	indexer contract.Indexer, metrics *observability.Metrics, log *slog.Logger,
	trashRetention time.Duration) *MessageService {
	return &MessageService{
		store:          store,
		notifications:  notifications,
		indexer:        indexer,
		metrics:        metrics,
		log:            log,
		trashRetention: trashRetention,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for timestamps and the trash window.
func (s *MessageService) WithClock(now func() time.Time) *MessageService {
	s.now = now
	return s
}

// Create validates and persists a message, then applies its side effects.
// Recording the last contact of the recipient and marking the parent as
// replied to are committed in the same transaction as the message.
// Indexing and notification happen afterwards and never fail the creation.
func (s *MessageService) Create(ctx context.Context, cmd CreateMessageCommand) (domain.Message, error) {
	message := domain.NewMessage(cmd.Subject, cmd.Content, cmd.SenderID, cmd.RecipientID, cmd.ParentID)
	if err := message.Validate(); err != nil {
		return domain.Message{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	var sender, recipient domain.Person
	var isReply bool
	err := s.store.Update(func(tx *repositories.Tx) error {
		var err error
		if sender, err = tx.GetPerson(cmd.SenderID); err != nil {
			return err
		}
		if recipient, err = tx.GetPerson(cmd.RecipientID); err != nil {
			return err
		}
		var parent *domain.Message
		if cmd.ParentID != nil {
			p, err := tx.GetMessage(*cmd.ParentID)
			if err != nil {
				return err
			}
			parent = &p
		}

		now := s.now()
		if err := tx.CreateMessage(&message, now); err != nil {
			return err
		}
		recipient.Contacted(message.UpdatedAt)
		if err := tx.SavePerson(recipient); err != nil {
			return err
		}
		if parent != nil && message.IsReplyTo(*parent) {
			isReply = true
			parent.MarkRepliedTo(now)
			return tx.SaveMessage(parent, now)
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("creating message failed: %w", err)
	}

	s.metrics.MessagesCreated.Inc()
	if isReply {
		s.metrics.Replies.Inc()
	}
	s.log.Info("Message created", "message_id", message.ID, "sender", sender.ID, "recipient", recipient.ID, "reply", isReply)

	if err := s.indexer.Index(message); err != nil {
		s.log.Warn("Indexing message failed", "message_id", message.ID, "error", err)
	}
	s.notify(message, sender, recipient, isReply, cmd.SkipNotification)
	return message, nil
}

func (s *MessageService) notify(message domain.Message, sender, recipient domain.Person, isReply, skip bool) {
	if skip {
		s.metrics.Notifications.WithLabelValues(observability.NotificationSkipped).Inc()
		return
	}
	notification := domain.NewNotification(message, sender, recipient, isReply)
	if err := s.notifications.Enqueue(notification); err != nil {
		s.log.Warn("Notification not queued", "message_id", message.ID, "error", err)
	}
}

// Reply answers the parent message on behalf of one of its parties.
func (s *MessageService) Reply(ctx context.Context, cmd ReplyCommand) (domain.Message, error) {
	parent, err := s.Get(ctx, cmd.ParentID)
	if err != nil {
		return domain.Message{}, err
	}
	party, err := parent.PartyOf(cmd.SenderID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %s is not part of message %s", err, cmd.SenderID, parent.ID)
	}
	recipientID := parent.SenderID
	if party == domain.Sender {
		recipientID = parent.RecipientID
	}

	subject := cmd.Subject
	if strings.TrimSpace(subject) == "" {
		subject = replySubject(parent.Subject)
	}
	return s.Create(ctx, CreateMessageCommand{
		Subject:          subject,
		Content:          cmd.Content,
		SenderID:         cmd.SenderID,
		RecipientID:      recipientID,
		ParentID:         lo.ToPtr(parent.ID),
		SkipNotification: cmd.SkipNotification,
	})
}

func replySubject(subject string) string {
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}
	if utf8.RuneCountInString(subject) > domain.MaxStringLength {
		subject = string([]rune(subject)[:domain.MaxStringLength])
	}
	return subject
}

func (s *MessageService) Get(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	err := s.store.View(func(tx *repositories.Tx) (err error) {
		message, err = tx.GetMessage(id)
		return err
	})
	return message, err
}

// Read returns a message to one of its parties. The first read by the
// recipient is recorded.
func (s *MessageService) Read(ctx context.Context, id, personID uuid.UUID) (domain.Message, error) {
	return s.update(ctx, id, func(m *domain.Message) (bool, error) {
		party, err := m.PartyOf(personID)
		if err != nil {
			return false, err
		}
		if party != domain.Recipient {
			return false, nil
		}
		if m.MarkAsRead(s.now()) {
			s.metrics.MessagesRead.Inc()
			return true, nil
		}
		return false, nil
	})
}

// Trash puts the message in the trash of the given party at the given time.
func (s *MessageService) Trash(ctx context.Context, id uuid.UUID, party domain.Party, at time.Time) (domain.Message, error) {
	if !party.Valid() {
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrUnauthorized, party)
	}
	return s.update(ctx, id, func(m *domain.Message) (bool, error) {
		return true, s.trash(m, party, &at)
	})
}

// TrashFor trashes the message for the person, who must be one of its parties.
func (s *MessageService) TrashFor(ctx context.Context, id, personID uuid.UUID, at time.Time) (domain.Message, error) {
	return s.update(ctx, id, func(m *domain.Message) (bool, error) {
		party, err := m.PartyOf(personID)
		if err != nil {
			return false, err
		}
		return true, s.trash(m, party, &at)
	})
}

func (s *MessageService) trash(m *domain.Message, party domain.Party, at *time.Time) error {
	if err := m.Trash(party, at); err != nil {
		return err
	}
	if at == nil {
		s.metrics.Untrashed.WithLabelValues(party.String()).Inc()
	} else {
		s.metrics.Trashed.WithLabelValues(party.String()).Inc()
	}
	return nil
}

// Untrash moves the message back to the mailbox of the party.
// It returns false without writing anything when the message is not trashed.
func (s *MessageService) Untrash(ctx context.Context, id uuid.UUID, party domain.Party) (bool, error) {
	if !party.Valid() {
		return false, fmt.Errorf("%w: %s", errors.ErrUnauthorized, party)
	}
	var restored bool
	_, err := s.update(ctx, id, func(m *domain.Message) (bool, error) {
		restored = m.Trashed(party, s.cutoff())
		if !restored {
			return false, nil
		}
		return true, s.trash(m, party, nil)
	})
	return restored, err
}

func (s *MessageService) UntrashFor(ctx context.Context, id, personID uuid.UUID) (bool, error) {
	var restored bool
	_, err := s.update(ctx, id, func(m *domain.Message) (bool, error) {
		party, err := m.PartyOf(personID)
		if err != nil {
			return false, err
		}
		restored = m.Trashed(party, s.cutoff())
		if !restored {
			return false, nil
		}
		return true, s.trash(m, party, nil)
	})
	return restored, err
}

// Trashed reports whether the party trashed the message within the retention window.
func (s *MessageService) Trashed(message domain.Message, party domain.Party) bool {
	return message.Trashed(party, s.cutoff())
}

// MarkAsRead records the first read of the recipient. Later calls keep
// the first timestamp and write nothing.
func (s *MessageService) MarkAsRead(ctx context.Context, id uuid.UUID, at time.Time) (domain.Message, error) {
	return s.update(ctx, id, func(m *domain.Message) (bool, error) {
		if m.MarkAsRead(at) {
			s.metrics.MessagesRead.Inc()
			return true, nil
		}
		return false, nil
	})
}

func (s *MessageService) cutoff() time.Time {
	return s.now().Add(-s.trashRetention)
}

// update loads a message, applies fn and saves the message only when fn
// reports a change. Nothing is written if fn fails.
func (s *MessageService) update(ctx context.Context, id uuid.UUID, fn func(m *domain.Message) (bool, error)) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	err := s.store.Update(func(tx *repositories.Tx) error {
		var err error
		if message, err = tx.GetMessage(id); err != nil {
			return err
		}
		changed, err := fn(&message)
		if err != nil || !changed {
			return err
		}
		return tx.SaveMessage(&message, s.now())
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// Inbox lists the messages received by the person and never trashed by them.
func (s *MessageService) Inbox(ctx context.Context, personID uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	return s.mailbox(ctx, personID, cursor, func(m domain.Message) bool {
		return m.RecipientID == personID && m.RecipientDeletedAt == nil
	})
}

// Sent lists the messages sent by the person and never trashed by them.
func (s *MessageService) Sent(ctx context.Context, personID uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	return s.mailbox(ctx, personID, cursor, func(m domain.Message) bool {
		return m.SenderID == personID && m.SenderDeletedAt == nil
	})
}

// TrashBox lists the messages trashed by the person within the retention window.
func (s *MessageService) TrashBox(ctx context.Context, personID uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	cutoff := s.cutoff()
	return s.mailbox(ctx, personID, cursor, func(m domain.Message) bool {
		if !m.Involves(personID) {
			return false
		}
		party, _ := m.PartyOf(personID)
		return m.Trashed(party, cutoff)
	})
}

func (s *MessageService) mailbox(ctx context.Context, personID uuid.UUID, cursor *string, keep func(domain.Message) bool) ([]domain.Message, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var messages []domain.Message
	var next *string
	err := s.store.View(func(tx *repositories.Tx) (err error) {
		messages, next, err = tx.Mailbox(personID, cursor, keep)
		return err
	})
	return messages, next, err
}

// Replies lists the direct replies to a message.
func (s *MessageService) Replies(ctx context.Context, id uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var messages []domain.Message
	var next *string
	err := s.store.View(func(tx *repositories.Tx) (err error) {
		messages, next, err = tx.Replies(id, cursor)
		return err
	})
	return messages, next, err
}

// UnreadCount counts the unread messages of the person's inbox.
func (s *MessageService) UnreadCount(ctx context.Context, personID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count int
	err := s.store.View(func(tx *repositories.Tx) (err error) {
		count, err = tx.CountMailbox(personID, func(m domain.Message) bool {
			return m.RecipientID == personID && m.RecipientDeletedAt == nil && !m.IsRead()
		})
		return err
	})
	return count, err
}

// Search finds the messages of the person matching a raw query such as
// "invoice --in subject --limit 5". Messages the person trashed are left out.
func (s *MessageService) Search(ctx context.Context, personID uuid.UUID, input string) ([]domain.Message, error) {
	query := search.NewSearchQuery(input)
	if query.IsEmpty() {
		return nil, fmt.Errorf("%w: empty search", errors.ErrValidation)
	}
	ids, err := s.indexer.Search(ctx, personID, query)
	if err != nil {
		return nil, fmt.Errorf("searching messages failed: %w", err)
	}

	var messages []domain.Message
	err = s.store.View(func(tx *repositories.Tx) error {
		for _, id := range ids {
			message, err := tx.GetMessage(id)
			if err != nil {
				return err
			}
			if !message.Involves(personID) {
				continue
			}
			if party, _ := message.PartyOf(personID); message.DeletedAt(party) != nil {
				continue
			}
			messages = append(messages, message)
		}
		return nil
	})
	return messages, err
}
