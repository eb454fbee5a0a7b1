// Warden Worker — выполняет work items из очереди.
//
// Worker:
//   - Забирает PENDING items из Postgres (атомарный claim)
//   - Выполняет функции из реестра и supervised-процессы
//   - Захватывает отказы работы в конверт результата
//   - Просыпается по событиям RabbitMQ, при недоступном брокере
//     переходит на чистый поллинг
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jacksund/warden/internal/mq"
	"github.com/jacksund/warden/internal/repo"
	"github.com/jacksund/warden/internal/telemetry"
	"github.com/jacksund/warden/internal/worker"
)

func main() {
	logger := telemetry.SetupLogger("worker")
	logger.Info("starting warden-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	store := repo.NewWorkItemRepo(pool)

	// RabbitMQ необязателен: без брокера worker живёт на поллинге.
	var publisher *mq.Publisher
	var mqConn *mq.Connection

	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	w := worker.New(worker.Config{
		Store:             store,
		Publisher:         publisher,
		Conn:              mqConn,
		Name:              os.Getenv("WORKER_NAME"),
		MaxItems:          envInt(logger, "WORKER_MAX_ITEMS"),
		Timeout:           envDuration(logger, "WORKER_TIMEOUT"),
		CloseOnEmptyQueue: os.Getenv("WORKER_CLOSE_ON_EMPTY") == "true",
		PollInterval:      envDuration(logger, "WORKER_POLL_INTERVAL"),
		Logger:            logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Сигнал завершения или самостоятельная остановка worker'а
	// (max items, timeout, close-on-empty).
	select {
	case <-ctx.Done():
	case <-w.Done():
		logger.Info("worker finished on its own")
	}

	w.Stop()
	logger.Info("warden-worker stopped")
}

func envInt(logger *slog.Logger, name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("ignoring invalid integer env", "name", name, "value", v)
		return 0
	}
	return n
}

func envDuration(logger *slog.Logger, name string) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn("ignoring invalid duration env", "name", name, "value", v)
		return 0
	}
	return d
}
