package domain

import (
	"fmt"
	"strings"
	"time"

	"messenger/errors"

	"github.com/google/uuid"
)

// Person is a party record. LastContactedAt moves forward each time
// the person receives a message.
type Person struct {
	ID              uuid.UUID
	Name            string `validate:"required,max=255"`
	Email           string `validate:"required,email,max=255"`
	LastContactedAt *time.Time
	CreatedAt       time.Time
}

func NewPerson(name, email string) Person {
	return Person{
		Name:  strings.TrimSpace(name),
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
}

func (p Person) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

// Contacted updates the bookkeeping timestamp of a received message.
func (p *Person) Contacted(at time.Time) {
	p.LastContactedAt = &at
}
