package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "messenger"

// Notification outcomes.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationDropped = "dropped"
	NotificationSkipped = "skipped"
)

// Metrics counts lifecycle transitions of messages.
type Metrics struct {
	MessagesCreated prometheus.Counter
	Replies         prometheus.Counter
	MessagesRead    prometheus.Counter
	Trashed         *prometheus.CounterVec
	Untrashed       *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_created_total",
			Help:      "Number of messages created.",
		}),
		Replies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Number of messages that marked their parent as replied to.",
		}),
		MessagesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_read_total",
			Help:      "Number of messages read for the first time by their recipient.",
		}),
		Trashed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_trashed_total",
			Help:      "Number of messages moved to the trash, by party.",
		}, []string{"party"}),
		Untrashed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_untrashed_total",
			Help:      "Number of messages moved back to the mailbox, by party.",
		}, []string{"party"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Number of message notifications, by outcome.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.MessagesCreated, m.Replies, m.MessagesRead, m.Trashed, m.Untrashed, m.Notifications)
	return m
}
