package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/mq"
	"github.com/jacksund/warden/internal/queue"
)

// Executor отправляет работу в очередь и возвращает Future.
//
// Submit никогда не блокируется на выполнении: он лишь кладёт item
// в хранилище. Сама работа начнётся, когда какой-нибудь worker её
// заберёт; между submit и claim может пройти сколько угодно времени.
type Executor struct {
	store     queue.Store
	publisher *mq.Publisher
	logger    *slog.Logger
}

// Config — конфигурация Executor.
type Config struct {
	// Store — хранилище очереди. Обязательно.
	Store queue.Store

	// Publisher — публикация событий work.submitted (опционально).
	// Без него worker'ы узнают о работе поллингом.
	Publisher *mq.Publisher

	// Logger — nil означает slog.Default().
	Logger *slog.Logger
}

// New создаёт Executor.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}

// Submit ставит в очередь вызов зарегистрированной функции.
//
// args маршалится в JSON сразу: ошибка сериализации видна здесь,
// а не в момент выполнения. Дубликаты не проверяются — каждый
// submit создаёт отдельный item.
func (e *Executor) Submit(ctx context.Context, fn string, args any) (*Future, error) {
	payload, err := domain.NewFunctionPayload(fn, args)
	if err != nil {
		return nil, err
	}
	return e.submit(ctx, payload)
}

// SubmitProcess ставит в очередь supervised-процесс.
func (e *Executor) SubmitProcess(ctx context.Context, spec domain.ProcessSpec) (*Future, error) {
	return e.submit(ctx, domain.NewProcessPayload(spec))
}

// SubmitPayload ставит в очередь уже собранный payload.
func (e *Executor) SubmitPayload(ctx context.Context, payload domain.Payload) (*Future, error) {
	return e.submit(ctx, payload)
}

func (e *Executor) submit(ctx context.Context, payload domain.Payload) (*Future, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}

	id, err := e.store.Create(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create work item: %w", err)
	}

	e.logger.Debug("work item submitted", "item_id", id, "kind", payload.Kind)
	e.announce(ctx, id)

	return e.Future(id), nil
}

// announce публикует подсказку о новом item'е. Отказ не ошибка:
// item уже в хранилище, worker'ы доберут его поллингом.
func (e *Executor) announce(ctx context.Context, id uuid.UUID) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishWorkSubmitted(ctx, id); err != nil {
		e.logger.Warn("failed to publish work.submitted", "item_id", id, "error", err)
	}
}

// Future возвращает handle на существующий item по ID. Используется,
// когда ID получен вне этого процесса (из CLI или другого сервиса).
func (e *Executor) Future(id uuid.UUID) *Future {
	return &Future{id: id, store: e.store}
}
