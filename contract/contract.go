//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"messenger/domain"
	"messenger/domain/search"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Notifier delivers a notification to the recipient of a message.
type Notifier interface {
	Notify(ctx context.Context, notification domain.Notification) error
}

// NotificationQueue accepts notifications for asynchronous delivery.
// Enqueue must never block the caller.
type NotificationQueue interface {
	Enqueue(notification domain.Notification) error
}

// Indexer maintains a searchable projection of messages.
type Indexer interface {
	Index(message domain.Message) error
	Search(ctx context.Context, personID uuid.UUID, query search.Query) ([]uuid.UUID, error)
}
