package repositories

import (
	stderrors "errors"
	"fmt"
	"time"

	"messenger/domain"
	"messenger/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	personPrefix     = "person:"
	personEmailIndex = "idx:person:email:"
)

func personKey(id uuid.UUID) []byte {
	return []byte(personPrefix + id.String())
}

func personEmailKey(email string) []byte {
	return []byte(personEmailIndex + email)
}

// CreatePerson persists a new person. Emails are unique.
func (t *Tx) CreatePerson(p *domain.Person, now time.Time) error {
	emailKey := personEmailKey(p.Email)
	if _, err := t.txn.Get(emailKey); err == nil {
		return fmt.Errorf("%w: %s", errors.ErrPersonAlreadyExists, p.Email)
	} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	p.ID = uuid.New()
	p.CreatedAt = now
	if err := t.txn.Set(emailKey, p.ID[:]); err != nil {
		return err
	}
	return t.txn.Set(personKey(p.ID), marshalPerson(*p))
}

// GetPerson loads a person by id.
func (t *Tx) GetPerson(id uuid.UUID) (domain.Person, error) {
	item, err := t.txn.Get(personKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Person{}, fmt.Errorf("%w: %s", errors.ErrPersonNotFound, id)
	}
	if err != nil {
		return domain.Person{}, err
	}
	var person domain.Person
	err = item.Value(func(val []byte) error {
		person, err = unmarshalPerson(val)
		return err
	})
	return person, err
}

// GetPersonByEmail resolves the email index then loads the person.
func (t *Tx) GetPersonByEmail(email string) (domain.Person, error) {
	item, err := t.txn.Get(personEmailKey(email))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Person{}, fmt.Errorf("%w: %s", errors.ErrPersonNotFound, email)
	}
	if err != nil {
		return domain.Person{}, err
	}
	var id uuid.UUID
	err = item.Value(func(val []byte) error {
		id, err = uuid.FromBytes(val)
		return err
	})
	if err != nil {
		return domain.Person{}, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, err)
	}
	return t.GetPerson(id)
}

// SavePerson overwrites an existing person. The email cannot change.
func (t *Tx) SavePerson(p domain.Person) error {
	if _, err := t.txn.Get(personKey(p.ID)); err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", errors.ErrPersonNotFound, p.ID)
		}
		return err
	}
	return t.txn.Set(personKey(p.ID), marshalPerson(p))
}

// ListPersons returns every person, ordered by id.
func (t *Tx) ListPersons() ([]domain.Person, error) {
	var persons []domain.Person
	prefix := []byte(personPrefix)
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			person, err := unmarshalPerson(val)
			if err != nil {
				return err
			}
			persons = append(persons, person)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return persons, nil
}
