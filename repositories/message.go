package repositories

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"messenger/domain"
	"messenger/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Keys:
//
//	msg:{id}                              the message record
//	idx:mailbox:{person}:{created}:{id}   one entry per party of the message
//	idx:reply:{parent}:{created}:{id}     reply chain
//
// Index timestamps are padded to 19 digits so that lexicographical order
// is chronological; the id breaks ties between messages of the same nanosecond.
const (
	messagePrefix = "msg:"
	mailboxPrefix = "idx:mailbox:"
	replyPrefix   = "idx:reply:"
	cursorLen     = 19 + 1 + 36
)

func messageKey(id uuid.UUID) []byte {
	return []byte(messagePrefix + id.String())
}

func mailboxKeyPrefix(personID uuid.UUID) string {
	return fmt.Sprintf("%s%s:", mailboxPrefix, personID)
}

func replyKeyPrefix(parentID uuid.UUID) string {
	return fmt.Sprintf("%s%s:", replyPrefix, parentID)
}

func indexSuffix(m domain.Message) string {
	return fmt.Sprintf("%019d:%s", m.CreatedAt.UnixNano(), m.ID)
}

// CreateMessage assigns an id and the creation timestamps, then persists the
// message together with its mailbox and reply index entries.
func (t *Tx) CreateMessage(m *domain.Message, now time.Time) error {
	m.ID = uuid.New()
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := t.txn.Set(messageKey(m.ID), marshalMessage(*m)); err != nil {
		return err
	}
	suffix := indexSuffix(*m)
	for _, personID := range []uuid.UUID{m.SenderID, m.RecipientID} {
		if err := t.txn.Set([]byte(mailboxKeyPrefix(personID)+suffix), nil); err != nil {
			return err
		}
	}
	if m.ParentID != nil {
		return t.txn.Set([]byte(replyKeyPrefix(*m.ParentID)+suffix), nil)
	}
	return nil
}

// GetMessage loads a message by id.
func (t *Tx) GetMessage(id uuid.UUID) (domain.Message, error) {
	item, err := t.txn.Get(messageKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrMessageNotFound, id)
	}
	if err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	err = item.Value(func(val []byte) error {
		message, err = unmarshalMessage(val)
		return err
	})
	return message, err
}

// SaveMessage overwrites an existing message and bumps UpdatedAt.
// Index entries only depend on immutable fields and are left untouched.
func (t *Tx) SaveMessage(m *domain.Message, now time.Time) error {
	if _, err := t.txn.Get(messageKey(m.ID)); err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", errors.ErrMessageNotFound, m.ID)
		}
		return err
	}
	m.UpdatedAt = now
	return t.txn.Set(messageKey(m.ID), marshalMessage(*m))
}

// Mailbox returns the messages sent or received by a person, newest first.
// Only messages accepted by keep are returned; the page size is bounded by
// the configured message limit. The returned cursor is nil on the last page.
func (t *Tx) Mailbox(personID uuid.UUID, cursor *string, keep func(domain.Message) bool) ([]domain.Message, *string, error) {
	return t.scan(mailboxKeyPrefix(personID), cursor, t.limitMessages, keep)
}

// Replies returns the direct replies to a message, newest first.
func (t *Tx) Replies(parentID uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	return t.scan(replyKeyPrefix(parentID), cursor, t.limitMessages, nil)
}

// CountMailbox counts the messages of a person accepted by keep.
func (t *Tx) CountMailbox(personID uuid.UUID, keep func(domain.Message) bool) (int, error) {
	messages, _, err := t.scan(mailboxKeyPrefix(personID), nil, nil, keep)
	return len(messages), err
}

func (t *Tx) scan(prefixStr string, cursor *string, limit *int, keep func(domain.Message) bool) ([]domain.Message, *string, error) {
	prefix := []byte(prefixStr)
	seekKey := append([]byte(prefixStr), 0xff)
	if cursor != nil {
		if err := validateCursor(*cursor); err != nil {
			return nil, nil, err
		}
		seekKey = []byte(prefixStr + *cursor)
	}

	options := badger.DefaultIteratorOptions
	options.Reverse = true
	options.PrefetchValues = false
	it := t.txn.NewIterator(options)
	defer it.Close()

	var messages []domain.Message
	var lastKey string
	it.Seek(seekKey)
	if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
		it.Next()
	}

	// A full page only yields a cursor once another kept message exists
	for ; it.ValidForPrefix(prefix); it.Next() {
		suffix := string(it.Item().Key()[len(prefix):])
		id, err := uuid.Parse(suffix[strings.LastIndex(suffix, ":")+1:])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: index key %q", errors.ErrInvalidRecord, it.Item().Key())
		}
		message, err := t.GetMessage(id)
		if err != nil {
			return nil, nil, err
		}
		if keep != nil && !keep(message) {
			continue
		}
		if limit != nil && len(messages) == *limit {
			t.log.Debug(fmt.Sprintf("Maximum of %d message reached", *limit))
			return messages, &lastKey, nil
		}
		lastKey = suffix
		messages = append(messages, message)
	}
	return messages, nil, nil
}

func validateCursor(cursor string) error {
	if len(cursor) != cursorLen || cursor[19] != ':' {
		return fmt.Errorf("%w: %q", errors.ErrInvalidCursor, cursor)
	}
	if _, err := strconv.ParseUint(cursor[:19], 10, 64); err != nil {
		return fmt.Errorf("%w: %q", errors.ErrInvalidCursor, cursor)
	}
	if _, err := uuid.Parse(cursor[20:]); err != nil {
		return fmt.Errorf("%w: %q", errors.ErrInvalidCursor, cursor)
	}
	return nil
}
