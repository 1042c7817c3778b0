package repositories

import (
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Store is the persistence collaborator of the message lifecycle.
// Every callback runs inside a single badger transaction: either all the
// writes of fn are committed or none of them is.
type Store struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewStore(db *badger.DB, log *slog.Logger, limitMessages *int) *Store {
	return &Store{db: db, log: log, limitMessages: limitMessages}
}

// Update runs fn in a read-write transaction.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(s.newTx(txn))
	})
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(tx *Tx) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(s.newTx(txn))
	})
}

func (s *Store) newTx(txn *badger.Txn) *Tx {
	return &Tx{txn: txn, log: s.log, limitMessages: s.limitMessages}
}

// Tx exposes typed access to messages and persons within one transaction.
type Tx struct {
	txn           *badger.Txn
	log           *slog.Logger
	limitMessages *int
}
