package index

import (
	"context"
	"fmt"
	"log/slog"

	"messenger/domain"
	"messenger/domain/search"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

const (
	fieldSubject     = "subject"
	fieldContent     = "content"
	fieldParticipant = "participant"
	fieldCreatedAt   = "created_at"
)

// MessageIndex is a full-text projection of messages. Each document can be
// found by its two participants only.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Open creates or reopens the index stored under path.
func Open(path string, log *slog.Logger) (*MessageIndex, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("opening search index failed: %w", err)
	}
	return NewMessageIndex(writer, log), nil
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index adds or replaces the document of a message.
func (i *MessageIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField(fieldSubject, message.Subject)).
		AddField(bluge.NewTextField(fieldContent, message.Content)).
		AddField(bluge.NewKeywordField(fieldParticipant, message.SenderID.String())).
		AddField(bluge.NewKeywordField(fieldParticipant, message.RecipientID.String())).
		AddField(bluge.NewDateTimeField(fieldCreatedAt, message.CreatedAt).Sortable())
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the ids of the messages of a person matching the query,
// best match first.
func (i *MessageIndex) Search(ctx context.Context, personID uuid.UUID, query search.Query) ([]uuid.UUID, error) {
	var textQuery bluge.Query
	switch query.Field {
	case search.SubjectField:
		textQuery = bluge.NewMatchQuery(query.Terms).SetField(fieldSubject)
	case search.ContentField:
		textQuery = bluge.NewMatchQuery(query.Terms).SetField(fieldContent)
	default:
		textQuery = bluge.NewBooleanQuery().
			AddShould(bluge.NewMatchQuery(query.Terms).SetField(fieldSubject)).
			AddShould(bluge.NewMatchQuery(query.Terms).SetField(fieldContent)).
			SetMinShould(1)
	}
	q := bluge.NewBooleanQuery().
		AddMust(textQuery).
		AddMust(bluge.NewTermQuery(personID.String()).SetField(fieldParticipant))

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Closing search reader failed", "error", err)
		}
	}()

	matches, err := reader.Search(ctx, bluge.NewTopNSearch(query.Limit, q))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	match, err := matches.Next()
	for err == nil && match != nil {
		var parseErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field != "_id" {
				return true
			}
			var id uuid.UUID
			id, parseErr = uuid.Parse(string(value))
			ids = append(ids, id)
			return false
		})
		if err == nil {
			err = parseErr
		}
		if err != nil {
			return nil, err
		}
		match, err = matches.Next()
	}
	return ids, err
}

func (i *MessageIndex) Close() error {
	return i.writer.Close()
}
