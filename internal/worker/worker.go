package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/engine"
	"github.com/jacksund/warden/internal/mq"
	"github.com/jacksund/warden/internal/queue"
	"github.com/jacksund/warden/internal/telemetry"
)

// Значения конфигурации по умолчанию.
const (
	defaultPollInterval    = 5 * time.Second
	defaultCompleteTimeout = 10 * time.Second
	defaultPrefetch        = 5
)

// Worker забирает items из очереди и выполняет их.
//
// Worker — stateless компонент:
//   - атомарно забирает PENDING items из хранилища (claim)
//   - выполняет payload (функция из реестра или supervised-процесс)
//   - захватывает любой отказ работы в конверт результата
//   - записывает результат и живёт дальше
//
// Событиями из RabbitMQ цикл просыпается быстрее, но и без брокера
// продолжает работать на поллинге. Экземпляры масштабируются
// горизонтально: хранилище гарантирует, что item достанется не более
// чем одному из них.
type Worker struct {
	store     queue.Store
	functions *Registry
	handlers  *engine.Registry

	publisher *mq.Publisher
	conn      *mq.Connection
	consumer  *mq.Consumer

	name         string
	maxItems     int
	timeout      time.Duration
	closeOnEmpty bool
	pollInterval time.Duration

	logger *slog.Logger
	wake   chan struct{}
	doneCh chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	// Store — хранилище очереди. Обязательно.
	Store queue.Store

	// Functions — реестр функций (nil — NewRegistry со встроенными).
	Functions *Registry

	// Handlers — реестр обработчиков ошибок для supervised-процессов
	// (nil — пустой engine.NewRegistry).
	Handlers *engine.Registry

	// Publisher — публикация событий work.finished (опционально).
	Publisher *mq.Publisher

	// Conn — соединение с RabbitMQ для событийного пробуждения
	// (опционально; без него остаётся только поллинг).
	Conn *mq.Connection

	// Name — имя worker'а, попадает в claimed_by. По умолчанию
	// hostname-pid.
	Name string

	// MaxItems — остановиться после N выполненных items (0 — без предела).
	MaxItems int

	// Timeout — перестать брать новые items спустя этот срок от старта
	// (0 — без предела). Уже начатый item дорабатывает.
	Timeout time.Duration

	// CloseOnEmptyQueue — завершиться, как только очередь опустела.
	CloseOnEmptyQueue bool

	// PollInterval — пауза между опросами пустой очереди (default: 5s).
	PollInterval time.Duration

	// Logger — nil означает slog.Default().
	Logger *slog.Logger
}

// New создаёт Worker с применёнными значениями по умолчанию.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	name := cfg.Name
	if name == "" {
		name = defaultName()
	}

	functions := cfg.Functions
	if functions == nil {
		functions = NewRegistry()
	}

	handlers := cfg.Handlers
	if handlers == nil {
		handlers = engine.NewRegistry()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		store:        cfg.Store,
		functions:    functions,
		handlers:     handlers,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		name:         name,
		maxItems:     cfg.MaxItems,
		timeout:      cfg.Timeout,
		closeOnEmpty: cfg.CloseOnEmptyQueue,
		pollInterval: pollInterval,
		logger:       logger.With("worker", name),
		wake:         make(chan struct{}, 1),
		doneCh:       make(chan struct{}),
	}
}

// Start запускает цикл выполнения и, при наличии соединения,
// consumer событий work.submitted.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"max_items", w.maxItems,
		"timeout", w.timeout,
		"close_on_empty", w.closeOnEmpty,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    mq.QueueWorkSubmitted,
			Handler:  w.handleWorkSubmitted,
			Prefetch: defaultPrefetch,
		})
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("work.submitted consumer error", "error", err)
			}
		}()
	} else {
		w.logger.Warn("no MQ connection, running in polling-only mode")
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.runLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и дожидается горутин.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker...")
	if w.cancel != nil {
		w.cancel()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// Done закрывается, когда цикл выполнения завершился сам:
// по MaxItems, Timeout, пустой очереди или отмене контекста.
func (w *Worker) Done() <-chan struct{} {
	return w.doneCh
}

// runLoop — основной цикл: claim, выполнение, запись результата.
func (w *Worker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	// nil-канал блокируется вечно: таймер заводится только при Timeout.
	var deadline <-chan time.Time
	if w.timeout > 0 {
		timer := time.NewTimer(w.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	processed := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			w.logger.Info("worker timeout reached", "processed", processed)
			return
		default:
		}

		item, err := w.store.ClaimOne(ctx, w.name)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			telemetry.QueuePolls.WithLabelValues("error").Inc()
			w.logger.Error("claim failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		if item == nil {
			telemetry.QueuePolls.WithLabelValues("empty").Inc()
			if w.closeOnEmpty {
				w.logger.Info("queue empty, shutting down", "processed", processed)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-deadline:
				w.logger.Info("worker timeout reached", "processed", processed)
				return
			case <-w.wake:
			case <-ticker.C:
			}
			continue
		}

		telemetry.QueuePolls.WithLabelValues("claimed").Inc()
		telemetry.ItemsClaimed.Inc()
		w.process(ctx, item)

		processed++
		if w.maxItems > 0 && processed >= w.maxItems {
			w.logger.Info("max items reached", "processed", processed)
			return
		}
	}
}

// process выполняет один item и записывает результат.
func (w *Worker) process(ctx context.Context, item *domain.WorkItem) {
	logger := w.logger.With("item_id", item.ID)
	logger.Info("work item started", "kind", item.Payload.Kind)
	start := time.Now()

	result := w.runItem(ctx, item)

	// Запись результата не зависит от жизни ctx: при остановке
	// worker'а RUNNING item не должен остаться без результата.
	cctx, cancel := context.WithTimeout(context.Background(), defaultCompleteTimeout)
	defer cancel()
	if err := w.store.Complete(cctx, item.ID, result); err != nil {
		logger.Error("failed to record result", "error", err)
		return
	}

	elapsed := time.Since(start)
	telemetry.ItemDuration.Observe(elapsed.Seconds())
	if result.OK {
		telemetry.ItemsFinished.WithLabelValues(telemetry.OutcomeOK).Inc()
		logger.Info("work item finished", "duration", elapsed)
	} else {
		telemetry.ItemsFinished.WithLabelValues(telemetry.OutcomeError).Inc()
		logger.Warn("work item failed",
			"duration", elapsed,
			"error_kind", result.Error.Kind,
			"error", result.Error.Message,
		)
	}

	w.publishFinished(cctx, item, result)
}

// publishFinished публикует событие work.finished. Отказ публикации
// не ошибка: результат уже в хранилище, наблюдатели доберут поллингом.
func (w *Worker) publishFinished(ctx context.Context, item *domain.WorkItem, result domain.Result) {
	if w.publisher == nil {
		return
	}

	payload := mq.WorkFinishedPayload{ItemID: item.ID, OK: result.OK}
	if result.Error != nil {
		payload.Kind = result.Error.Kind
	}
	if err := w.publisher.PublishWorkFinished(ctx, payload); err != nil {
		w.logger.Warn("failed to publish work.finished", "item_id", item.ID, "error", err)
	}
}

// handleWorkSubmitted будит цикл по событию о новом item'е.
func (w *Worker) handleWorkSubmitted(_ context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.WorkSubmittedPayload](&delivery.Message)
	if err != nil {
		return fmt.Errorf("parse work.submitted payload: %w", err)
	}

	w.logger.Debug("received work.submitted event", "item_id", payload.ItemID)
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// defaultName собирает имя worker'а из hostname и pid.
func defaultName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
