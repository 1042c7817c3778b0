package repositories

import (
	"fmt"
	"time"

	"messenger/domain"
	"messenger/errors"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored in protobuf wire format so that fields can be added
// without rewriting existing values. Optional timestamps are simply absent.
const (
	msgFieldID protowire.Number = iota + 1
	msgFieldSubject
	msgFieldContent
	msgFieldSender
	msgFieldRecipient
	msgFieldParent
	msgFieldSenderDeletedAt
	msgFieldSenderReadAt
	msgFieldRecipientDeletedAt
	msgFieldRecipientReadAt
	msgFieldRepliedAt
	msgFieldCreatedAt
	msgFieldUpdatedAt
)

const (
	personFieldID protowire.Number = iota + 1
	personFieldName
	personFieldEmail
	personFieldLastContactedAt
	personFieldCreatedAt
)

func marshalMessage(m domain.Message) []byte {
	b := appendUUID(nil, msgFieldID, m.ID)
	b = appendString(b, msgFieldSubject, m.Subject)
	b = appendString(b, msgFieldContent, m.Content)
	b = appendUUID(b, msgFieldSender, m.SenderID)
	b = appendUUID(b, msgFieldRecipient, m.RecipientID)
	if m.ParentID != nil {
		b = appendUUID(b, msgFieldParent, *m.ParentID)
	}
	b = appendOptionalTime(b, msgFieldSenderDeletedAt, m.SenderDeletedAt)
	b = appendOptionalTime(b, msgFieldSenderReadAt, m.SenderReadAt)
	b = appendOptionalTime(b, msgFieldRecipientDeletedAt, m.RecipientDeletedAt)
	b = appendOptionalTime(b, msgFieldRecipientReadAt, m.RecipientReadAt)
	b = appendOptionalTime(b, msgFieldRepliedAt, m.RepliedAt)
	b = appendTime(b, msgFieldCreatedAt, m.CreatedAt)
	return appendTime(b, msgFieldUpdatedAt, m.UpdatedAt)
}

func unmarshalMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case msgFieldID:
			return consumeUUID(typ, b, &m.ID)
		case msgFieldSubject:
			return consumeString(typ, b, &m.Subject)
		case msgFieldContent:
			return consumeString(typ, b, &m.Content)
		case msgFieldSender:
			return consumeUUID(typ, b, &m.SenderID)
		case msgFieldRecipient:
			return consumeUUID(typ, b, &m.RecipientID)
		case msgFieldParent:
			var parentID uuid.UUID
			n, err := consumeUUID(typ, b, &parentID)
			m.ParentID = &parentID
			return n, err
		case msgFieldSenderDeletedAt:
			return consumeOptionalTime(typ, b, &m.SenderDeletedAt)
		case msgFieldSenderReadAt:
			return consumeOptionalTime(typ, b, &m.SenderReadAt)
		case msgFieldRecipientDeletedAt:
			return consumeOptionalTime(typ, b, &m.RecipientDeletedAt)
		case msgFieldRecipientReadAt:
			return consumeOptionalTime(typ, b, &m.RecipientReadAt)
		case msgFieldRepliedAt:
			return consumeOptionalTime(typ, b, &m.RepliedAt)
		case msgFieldCreatedAt:
			return consumeTime(typ, b, &m.CreatedAt)
		case msgFieldUpdatedAt:
			return consumeTime(typ, b, &m.UpdatedAt)
		default:
			return skipField(num, typ, b)
		}
	})
	return m, err
}

func marshalPerson(p domain.Person) []byte {
	b := appendUUID(nil, personFieldID, p.ID)
	b = appendString(b, personFieldName, p.Name)
	b = appendString(b, personFieldEmail, p.Email)
	b = appendOptionalTime(b, personFieldLastContactedAt, p.LastContactedAt)
	return appendTime(b, personFieldCreatedAt, p.CreatedAt)
}

func unmarshalPerson(b []byte) (domain.Person, error) {
	var p domain.Person
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case personFieldID:
			return consumeUUID(typ, b, &p.ID)
		case personFieldName:
			return consumeString(typ, b, &p.Name)
		case personFieldEmail:
			return consumeString(typ, b, &p.Email)
		case personFieldLastContactedAt:
			return consumeOptionalTime(typ, b, &p.LastContactedAt)
		case personFieldCreatedAt:
			return consumeTime(typ, b, &p.CreatedAt)
		default:
			return skipField(num, typ, b)
		}
	})
	return p, err
}

type fieldConsumer func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func consumeFields(b []byte, consume fieldConsumer) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", errors.ErrInvalidRecord, protowire.ParseError(n))
		}
		b = b[n:]
		n, err := consume(num, typ, b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendUUID(b []byte, num protowire.Number, id uuid.UUID) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, id[:])
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(t.UnixNano()))
}

func appendOptionalTime(b []byte, num protowire.Number, t *time.Time) []byte {
	if t == nil {
		return b
	}
	return appendTime(b, num, *t)
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("%w: unexpected wire type %d", errors.ErrInvalidRecord, typ)
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, protowire.ParseError(n))
	}
	*dst = v
	return n, nil
}

func consumeUUID(typ protowire.Type, b []byte, dst *uuid.UUID) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("%w: unexpected wire type %d", errors.ErrInvalidRecord, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, protowire.ParseError(n))
	}
	id, err := uuid.FromBytes(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, err)
	}
	*dst = id
	return n, nil
}

func consumeTime(typ protowire.Type, b []byte, dst *time.Time) (int, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("%w: unexpected wire type %d", errors.ErrInvalidRecord, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, protowire.ParseError(n))
	}
	*dst = time.Unix(0, protowire.DecodeZigZag(v)).UTC()
	return n, nil
}

func consumeOptionalTime(typ protowire.Type, b []byte, dst **time.Time) (int, error) {
	var t time.Time
	n, err := consumeTime(typ, b, &t)
	if err != nil {
		return 0, err
	}
	*dst = &t
	return n, nil
}

// skipField ignores fields written by a newer version of the record.
func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, protowire.ParseError(n))
	}
	return n, nil
}
