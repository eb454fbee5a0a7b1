// Warden Scheduler — отправляет payload'ы due-расписаний в очередь.
//
// Scheduler можно запускать в нескольких экземплярах: лидер выбирается
// через pg_try_advisory_lock, остальные ждут в горячем резерве.
// Ключ идемпотентности на (schedule, due-время) страхует от дублей
// и при смене лидера посреди тика.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jacksund/warden/internal/mq"
	"github.com/jacksund/warden/internal/repo"
	"github.com/jacksund/warden/internal/scheduler"
	"github.com/jacksund/warden/internal/telemetry"
)

const (
	leaderLockKey int64 = 871142
	tickInterval        = time.Second
)

func main() {
	logger := telemetry.SetupLogger("scheduler")
	logger.Info("starting warden-scheduler")

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

	// RabbitMQ необязателен: без подсказок worker'ы доберут работу
	// поллингом.
	var publisher *mq.Publisher

	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, submit hints disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	sched := scheduler.New(scheduler.Config{
		Schedules: repo.NewScheduleRepo(pool),
		Items:     repo.NewWorkItemRepo(pool),
		Publisher: publisher,
		Logger:    logger,
	})

	// Цикл тиков с выбором лидера.
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)

		tk := time.NewTicker(tickInterval)
		defer tk.Stop()

		var isLeader bool
		defer func() {
			if isLeader {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", leaderLockKey)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
			}

			// Лидерство закреплено за сессией: захватываем один раз,
			// advisory lock живёт до разрыва соединения или unlock.
			if !isLeader {
				var got bool
				if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", leaderLockKey).Scan(&got); err != nil {
					logger.Error("leader lock attempt failed", "error", err)
					continue
				}
				if !got {
					continue
				}
				isLeader = true
				logger.Info("became scheduler leader")
			}

			if err := sched.Tick(ctx); err != nil {
				logger.Error("scheduler tick failed", "error", err)
			}
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	<-loopDone
	logger.Info("warden-scheduler stopped")
}
