package services

import (
	"context"
	"log/slog"
	"time"

	"messenger/domain"
	"messenger/repositories"

	"github.com/google/uuid"
)

type IPersonService interface {
	Register(ctx context.Context, name, email string) (domain.Person, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Person, error)
	GetByEmail(ctx context.Context, email string) (domain.Person, error)
	List(ctx context.Context) ([]domain.Person, error)
}

type PersonService struct {
	store *repositories.Store
	log   *slog.Logger
}

func NewPersonService(store *repositories.Store, log *slog.Logger) *PersonService {
	return &PersonService{store: store, log: log}
}

func (s *PersonService) Register(ctx context.Context, name, email string) (domain.Person, error) {
	// 1. Validate before touching the store
	person := domain.NewPerson(name, email)
	if err := person.Validate(); err != nil {
		return domain.Person{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Person{}, err
	}

	// 2. Persist, rejecting a second person with the same email
	err := s.store.Update(func(tx *repositories.Tx) error {
		return tx.CreatePerson(&person, time.Now().UTC())
	})
	if err != nil {
		return domain.Person{}, err
	}
	s.log.Info("Person registered", "person_id", person.ID, "email", person.Email)
	return person, nil
}

func (s *PersonService) Get(ctx context.Context, id uuid.UUID) (domain.Person, error) {
	if err := ctx.Err(); err != nil {
		return domain.Person{}, err
	}
	var person domain.Person
	err := s.store.View(func(tx *repositories.Tx) (err error) {
		person, err = tx.GetPerson(id)
		return err
	})
	return person, err
}

// GetByEmail looks a person up with the same normalization as Register.
func (s *PersonService) GetByEmail(ctx context.Context, email string) (domain.Person, error) {
	if err := ctx.Err(); err != nil {
		return domain.Person{}, err
	}
	normalized := domain.NewPerson("", email).Email
	var person domain.Person
	err := s.store.View(func(tx *repositories.Tx) (err error) {
		person, err = tx.GetPersonByEmail(normalized)
		return err
	})
	return person, err
}

func (s *PersonService) List(ctx context.Context) ([]domain.Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var persons []domain.Person
	err := s.store.View(func(tx *repositories.Tx) (err error) {
		persons, err = tx.ListPersons()
		return err
	})
	return persons, err
}
