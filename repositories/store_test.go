package repositories

import (
	"log/slog"
	"testing"
	"time"

	"messenger/domain"
	"messenger/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// SetupTestDB initializes a temporary Badger instance for testing
func SetupTestDB(t *testing.T) (*badger.DB, func()) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)

	return db, func() {
		db.Close()
	}
}

func createPersons(t *testing.T, store *Store, names ...string) []domain.Person {
	var persons []domain.Person
	require.NoError(t, store.Update(func(tx *Tx) error {
		for _, name := range names {
			p := domain.NewPerson(name, name+"@example.com")
			if err := tx.CreatePerson(&p, time.Now().UTC()); err != nil {
				return err
			}
			persons = append(persons, p)
		}
		return nil
	}))
	return persons
}

func TestStore_CreateAndGetMessage(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	store := NewStore(db, slog.Default(), nil)
	persons := createPersons(t, store, "alice", "bob")
	now := time.Now().UTC()

	message := domain.NewMessage("Hello", "Hi Bob", persons[0].ID, persons[1].ID, nil)
	req.NoError(store.Update(func(tx *Tx) error {
		return tx.CreateMessage(&message, now)
	}))
	req.NotEqual(uuid.Nil, message.ID)

	var fetched domain.Message
	req.NoError(store.View(func(tx *Tx) (err error) {
		fetched, err = tx.GetMessage(message.ID)
		return err
	}))
	req.Equal(message.Subject, fetched.Subject)
	req.Equal(message.Content, fetched.Content)
	req.Equal(message.SenderID, fetched.SenderID)
	req.Equal(message.RecipientID, fetched.RecipientID)
	req.Nil(fetched.ParentID)
	req.Nil(fetched.RecipientReadAt)
	req.True(now.Equal(fetched.CreatedAt))
	req.True(now.Equal(fetched.UpdatedAt))
}

func TestStore_GetMessage_NotFound(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	store := NewStore(db, slog.Default(), nil)

	err := store.View(func(tx *Tx) error {
		_, err := tx.GetMessage(uuid.New())
		return err
	})
	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func TestStore_Update_IsAtomic(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	store := NewStore(db, slog.Default(), nil)
	persons := createPersons(t, store, "alice", "bob")

	// Given a transaction that creates a message then fails on a missing person
	message := domain.NewMessage("Hello", "Hi Bob", persons[0].ID, persons[1].ID, nil)
	err := store.Update(func(tx *Tx) error {
		if err := tx.CreateMessage(&message, time.Now().UTC()); err != nil {
			return err
		}
		return tx.SavePerson(domain.Person{ID: uuid.New()})
	})
	req.ErrorIs(err, errors.ErrPersonNotFound)

	// Then nothing has been committed
	req.ErrorIs(store.View(func(tx *Tx) error {
		_, err := tx.GetMessage(message.ID)
		return err
	}), errors.ErrMessageNotFound)
}

func TestStore_Mailbox_SortedAndPaginated(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	store := NewStore(db, slog.Default(), lo.ToPtr(2))
	persons := createPersons(t, store, "alice", "bob", "clara")
	alice, bob, clara := persons[0], persons[1], persons[2]
	at := time.Now().UTC()

	// Given alice exchanged three messages and bob talks to clara
	var created []domain.Message
	req.NoError(store.Update(func(tx *Tx) error {
		for i, pair := range [][2]uuid.UUID{{alice.ID, bob.ID}, {bob.ID, alice.ID}, {clara.ID, alice.ID}, {bob.ID, clara.ID}} {
			m := domain.NewMessage("Subject", "Content", pair[0], pair[1], nil)
			if err := tx.CreateMessage(&m, at.Add(time.Duration(i)*time.Minute)); err != nil {
				return err
			}
			created = append(created, m)
		}
		return nil
	}))

	// When alice reads the first page
	var page []domain.Message
	var cursor *string
	req.NoError(store.View(func(tx *Tx) (err error) {
		page, cursor, err = tx.Mailbox(alice.ID, nil, nil)
		return err
	}))

	// Then the newest messages come first
	req.Len(page, 2)
	req.Equal(created[2].ID, page[0].ID)
	req.Equal(created[1].ID, page[1].ID)
	req.NotNil(cursor)

	// When alice reads the next page
	req.NoError(store.View(func(tx *Tx) (err error) {
		page, cursor, err = tx.Mailbox(alice.ID, cursor, nil)
		return err
	}))
	req.Len(page, 1)
	req.Equal(created[0].ID, page[0].ID)
	req.Nil(cursor)
}

func TestStore_Mailbox_Filter(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	store := NewStore(db, slog.Default(), nil)
	persons := createPersons(t, store, "alice", "bob")
	alice, bob := persons[0], persons[1]

	req.NoError(store.Update(func(tx *Tx) error {
		for _, pair := range [][2]uuid.UUID{{alice.ID, bob.ID}, {bob.ID, alice.ID}, {bob.ID, alice.ID}} {
			m := domain.NewMessage("Subject", "Content", pair[0], pair[1], nil)
			if err := tx.CreateMessage(&m, time.Now().UTC()); err != nil {
				return err
			}
		}
		return nil
	}))

	var received int
	req.NoError(store.View(func(tx *Tx) (err error) {
		received, err = tx.CountMailbox(alice.ID, func(m domain.Message) bool {
			return m.RecipientID == alice.ID
		})
		return err
	}))
	req.Equal(2, received)
}

func TestStore_Mailbox_NoCursorWhenRestIsFilteredOut(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	store := NewStore(db, slog.Default(), lo.ToPtr(2))
	persons := createPersons(t, store, "alice", "bob")
	alice, bob := persons[0], persons[1]
	at := time.Now().UTC()

	// Given alice received two messages after sending the oldest one
	var created []domain.Message
	req.NoError(store.Update(func(tx *Tx) error {
		for i, pair := range [][2]uuid.UUID{{alice.ID, bob.ID}, {bob.ID, alice.ID}, {bob.ID, alice.ID}} {
			m := domain.NewMessage("Subject", "Content", pair[0], pair[1], nil)
			if err := tx.CreateMessage(&m, at.Add(time.Duration(i)*time.Minute)); err != nil {
				return err
			}
			created = append(created, m)
		}
		return nil
	}))

	// When her received messages fill exactly one page
	var page []domain.Message
	var cursor *string
	req.NoError(store.View(func(tx *Tx) (err error) {
		page, cursor, err = tx.Mailbox(alice.ID, nil, func(m domain.Message) bool {
			return m.RecipientID == alice.ID
		})
		return err
	}))

	// Then no cursor points to an empty page
	req.Len(page, 2)
	req.Equal(created[2].ID, page[0].ID)
	req.Equal(created[1].ID, page[1].ID)
	req.Nil(cursor)
}

func TestStore_Mailbox_InvalidCursor(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	store := NewStore(db, slog.Default(), nil)

	err := store.View(func(tx *Tx) error {
		_, _, err := tx.Mailbox(uuid.New(), lo.ToPtr("not-a-cursor"), nil)
		return err
	})
	req.ErrorIs(err, errors.ErrInvalidCursor)
}

func TestStore_Replies(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	store := NewStore(db, slog.Default(), nil)
	persons := createPersons(t, store, "alice", "bob")
	alice, bob := persons[0], persons[1]
	now := time.Now().UTC()

	parent := domain.NewMessage("Hello", "Hi Bob", alice.ID, bob.ID, nil)
	reply := domain.NewMessage("Re: Hello", "Hi Alice", bob.ID, alice.ID, &parent.ID)
	req.NoError(store.Update(func(tx *Tx) error {
		if err := tx.CreateMessage(&parent, now); err != nil {
			return err
		}
		reply.ParentID = &parent.ID
		return tx.CreateMessage(&reply, now.Add(time.Second))
	}))

	var replies []domain.Message
	req.NoError(store.View(func(tx *Tx) (err error) {
		replies, _, err = tx.Replies(parent.ID, nil)
		return err
	}))
	req.Len(replies, 1)
	req.Equal(reply.ID, replies[0].ID)
	req.Equal(parent.ID, *replies[0].ParentID)
}

func TestStore_Person(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	store := NewStore(db, slog.Default(), nil)
	alice := createPersons(t, store, "alice")[0]

	t.Run("should reject a duplicate email", func(t *testing.T) {
		duplicate := domain.NewPerson("Alice bis", "alice@example.com")
		err := store.Update(func(tx *Tx) error {
			return tx.CreatePerson(&duplicate, time.Now().UTC())
		})
		require.ErrorIs(t, err, errors.ErrPersonAlreadyExists)
	})

	t.Run("should find a person by email", func(t *testing.T) {
		var found domain.Person
		require.NoError(t, store.View(func(tx *Tx) (err error) {
			found, err = tx.GetPersonByEmail("alice@example.com")
			return err
		}))
		require.Equal(t, alice.ID, found.ID)
	})

	t.Run("should persist the last contact", func(t *testing.T) {
		contactedAt := time.Now().UTC()
		alice.Contacted(contactedAt)
		require.NoError(t, store.Update(func(tx *Tx) error {
			return tx.SavePerson(alice)
		}))

		var found domain.Person
		require.NoError(t, store.View(func(tx *Tx) (err error) {
			found, err = tx.GetPerson(alice.ID)
			return err
		}))
		require.NotNil(t, found.LastContactedAt)
		require.True(t, contactedAt.Equal(*found.LastContactedAt))
	})

	req.ErrorIs(store.View(func(tx *Tx) error {
		_, err := tx.GetPerson(uuid.New())
		return err
	}), errors.ErrPersonNotFound)
}

func TestCodec_SkipsUnknownFields(t *testing.T) {
	req := require.New(t)
	deletedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	message := domain.Message{
		ID:                 uuid.New(),
		Subject:            "Hello",
		Content:            "Hi",
		SenderID:           uuid.New(),
		RecipientID:        uuid.New(),
		ParentID:           lo.ToPtr(uuid.New()),
		RecipientDeletedAt: &deletedAt,
		CreatedAt:          deletedAt.Add(-time.Hour),
		UpdatedAt:          deletedAt,
	}

	// Given a record written by a newer version with an extra field
	b := marshalMessage(message)
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	decoded, err := unmarshalMessage(b)
	req.NoError(err)
	req.Equal(message, decoded)
}

func TestCodec_RejectsTruncatedRecord(t *testing.T) {
	b := marshalPerson(domain.Person{ID: uuid.New(), Name: "alice", Email: "alice@example.com"})

	_, err := unmarshalPerson(b[:len(b)-3])
	require.ErrorIs(t, err, errors.ErrInvalidRecord)
}
