package observability

import (
	"log/slog"
	"os"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	req := require.New(t)
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.Trashed.WithLabelValues("sender").Inc()
	metrics.Notifications.WithLabelValues(NotificationSent).Add(2)

	req.Equal(1.0, testutil.ToFloat64(metrics.Trashed.WithLabelValues("sender")))
	req.Equal(2.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues(NotificationSent)))
	req.Equal(2, testutil.CollectAndCount(registry, "messenger_messages_trashed_total", "messenger_notifications_total"))

	// A second registration on the same registry is a programming error
	req.Panics(func() { NewMetrics(registry) })
}

func TestProcessStats(t *testing.T) {
	stats := ProcessStats(logs.GetLoggerFromLevel(slog.LevelDebug))
	require.Equal(t, os.Getpid(), stats["PID"])
}
