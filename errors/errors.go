package errors

import "fmt"

var (
	ErrValidation            = fmt.Errorf("validation failed")
	ErrUnauthorized          = fmt.Errorf("unauthorized person")
	ErrMessageNotFound       = fmt.Errorf("message not found")
	ErrPersonNotFound        = fmt.Errorf("person not found")
	ErrPersonAlreadyExists   = fmt.Errorf("person already exists")
	ErrInvalidCursor         = fmt.Errorf("invalid cursor")
	ErrInvalidRecord         = fmt.Errorf("invalid stored record")
	ErrWorkerPanic           = fmt.Errorf("worker panic")
	ErrNotificationQueueFull = fmt.Errorf("notification queue is full")
	ErrNoRecipientAddress    = fmt.Errorf("recipient has no email address")
)
