package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"messenger/contract"
	"messenger/infrastructure/index"
	"messenger/internal"
	"messenger/notification"
	"messenger/observability"
	"messenger/repositories"
	"messenger/runtime/workers"
	"messenger/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exit codes to provide meaningful status to the shell.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
	exitUsage   = 64
)

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, color.Red.Sprintf("Error: %v", err))
	}
	os.Exit(code)
}

// run wires every component, executes one command and releases resources.
// Deferred calls run before the exit code reaches main: the notification
// queue is drained before the store and the index are closed.
func run(args []string) (int, error) {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return exitUsage, stderrors.New("missing command")
	}

	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Debug("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Search index (Bluge)
	messageIndex, err := index.Open(config.BlugeFilepath, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Debug("Closing Bluge...")
		_ = messageIndex.Close()
	}()

	// 4. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)
	if config.MetricsAddr != "" {
		shutdown := serveMetrics(config.MetricsAddr, registry, log)
		defer shutdown()
	}

	// 5. Notification delivery under supervision
	dispatcher := notification.NewDispatcher(newNotifier(config, log), log, metrics,
		config.NotificationBufferSize, config.DeliveryTimeout)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(dispatcher)
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()
	defer func() {
		sup.Stop()
		<-done
	}()

	// 6. Services & command
	store := repositories.NewStore(db, log, config.LimitMessages)
	app := &cli{
		messages: services.NewMessageService(store, dispatcher, messageIndex, metrics, log, config.TrashRetention),
		persons:  services.NewPersonService(store, log),
		inspector: internal.NewInspectHandler(db, log, func() map[string]any {
			stats := observability.ProcessStats(log)
			stats["Time"] = time.Now().Format(time.RFC822)
			return stats
		}),
		debugAddr: config.DebugAddr,
		log:       log,
		out:       os.Stdout,
	}
	if err := app.execute(ctx, args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return exitOK, nil
		}
		if stderrors.Is(err, errUsage) {
			return exitUsage, err
		}
		return exitRuntime, err
	}
	return exitOK, nil
}

func newNotifier(config internal.Config, log *slog.Logger) contract.Notifier {
	if config.SMTPAddr == "" {
		log.Debug("No SMTP relay configured, notifications are only logged")
		return notification.NewLogNotifier(log)
	}
	return notification.NewSMTPNotifier(config.SMTP(), log)
}

func serveMetrics(addr string, registry *prometheus.Registry, log *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("Serving metrics", "address", addr)
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Warn("Metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
