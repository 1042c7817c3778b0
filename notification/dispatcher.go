package notification

import (
	"context"
	"log/slog"
	"time"

	"messenger/contract"
	"messenger/domain"
	"messenger/errors"
	"messenger/observability"
)

// Dispatcher delivers notifications in the background so that a slow or
// failing relay never delays nor fails message creation.
// Pending notifications are drained when the worker stops.
type Dispatcher struct {
	notifier        contract.Notifier
	queue           chan domain.Notification
	log             *slog.Logger
	metrics         *observability.Metrics
	deliveryTimeout time.Duration
}

func NewDispatcher(notifier contract.Notifier, log *slog.Logger, metrics *observability.Metrics,
	bufferSize int, deliveryTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		notifier:        notifier,
		queue:           make(chan domain.Notification, bufferSize),
		log:             log,
		metrics:         metrics,
		deliveryTimeout: deliveryTimeout,
	}
}

// Enqueue never blocks: when the queue is full the notification is dropped.
func (d *Dispatcher) Enqueue(n domain.Notification) error {
	select {
	case d.queue <- n:
		return nil
	default:
		d.metrics.Notifications.WithLabelValues(observability.NotificationDropped).Inc()
		return errors.ErrNotificationQueueFull
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			return nil
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification) {
	ctx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, n); err != nil {
		d.metrics.Notifications.WithLabelValues(observability.NotificationFailed).Inc()
		d.log.Warn("Notification delivery failed", "message_id", n.MessageID, "error", err)
		return
	}
	d.metrics.Notifications.WithLabelValues(observability.NotificationSent).Inc()
}
