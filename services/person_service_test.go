package services

import (
	"context"
	"testing"

	"messenger/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPersonService_Register(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	person, err := f.persons.Register(ctx, "  Alice ", "Alice@Example.com")
	req.NoError(err)
	req.NotEqual(uuid.Nil, person.ID)
	req.Equal("Alice", person.Name)
	req.Equal("alice@example.com", person.Email)

	found, err := f.persons.GetByEmail(ctx, "ALICE@example.com ")
	req.NoError(err)
	req.Equal(person.ID, found.ID)

	_, err = f.persons.Register(ctx, "Alice again", "alice@example.com")
	req.ErrorIs(err, errors.ErrPersonAlreadyExists)

	persons, err := f.persons.List(ctx)
	req.NoError(err)
	req.Len(persons, 1)
}

func TestPersonService_Register_Invalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name  string
		email string
	}{
		{name: "", email: "nobody@example.com"},
		{name: "Bob", email: "not-an-email"},
		{name: "Bob", email: ""},
	}
	for _, tt := range tests {
		_, err := f.persons.Register(ctx, tt.name, tt.email)
		require.ErrorIs(t, err, errors.ErrValidation)
	}

	_, err := f.persons.Get(ctx, uuid.New())
	require.ErrorIs(t, err, errors.ErrPersonNotFound)
}
