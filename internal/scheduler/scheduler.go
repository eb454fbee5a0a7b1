package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/mq"
	"github.com/jacksund/warden/internal/telemetry"
)

// ScheduleStore — срез операций хранилища расписаний, нужный планировщику.
// Реализуется repo.ScheduleRepo.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) error
}

// ItemCreator — идемпотентное создание items. Реализуется repo.WorkItemRepo.
type ItemCreator interface {
	CreateWithKey(ctx context.Context, payload domain.Payload, key string) (uuid.UUID, bool, error)
}

// Scheduler отправляет payload'ы due-расписаний в очередь работы.
type Scheduler struct {
	schedules ScheduleStore
	items     ItemCreator
	publisher *mq.Publisher
	logger    *slog.Logger
	batchSize int
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules ScheduleStore
	Items     ItemCreator

	// Publisher — публикация work.submitted (опционально).
	Publisher *mq.Publisher

	Logger *slog.Logger

	// BatchSize — количество расписаний за один тик (default: 100).
	BatchSize int
}

// New создаёт Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules: cfg.Schedules,
		items:     cfg.Items,
		publisher: cfg.Publisher,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Tick выполняет один проход планировщика:
//
//  1. Находит due-расписания (enabled, next_due_at <= now).
//  2. Для каждого идемпотентно создаёт WorkItem.
//  3. Сдвигает next_due_at и записывает факт отправки.
//  4. Публикует work.submitted для созданных items.
//
// Ошибка одного расписания не блокирует обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	due, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(due))

	var processed, submitted int
	for i := range due {
		sched := &due[i]

		created, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if created {
			submitted++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(due),
		"processed", processed,
		"submitted", submitted,
	)
	return nil
}

// processSchedule отправляет payload одного расписания.
// Возвращает true, если item был создан (не оказался дубликатом).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	// Ключ идемпотентности: расписание плюс конкретное время
	// срабатывания. Уникальный индекс хранилища гарантирует один item
	// на пару, сколько бы процессов ни тикнуло одновременно.
	key := fmt.Sprintf("%s_%d", sched.ID, sched.NextDueAt.Unix())

	itemID, created, err := s.items.CreateWithKey(ctx, sched.Payload, key)
	if err != nil {
		return false, fmt.Errorf("create work item: %w", err)
	}

	if created {
		telemetry.ScheduleSubmissions.Inc()
		s.logger.Info("submitted work item from schedule",
			"item_id", itemID,
			"schedule_id", sched.ID,
			"schedule_name", sched.Name,
		)
	} else {
		s.logger.Debug("work item already exists for this due time",
			"item_id", itemID,
			"schedule_id", sched.ID,
			"idempotency_key", key,
		)
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// Расписание некорректное: next_due_at не трогаем, чтобы
		// оператор увидел застрявшее расписание, а не тихую пропажу.
		s.logger.Error("failed to calculate next due time",
			"schedule_id", sched.ID,
			"error", err,
		)
		return created, nil
	}

	sched.RecordSubmission(itemID, nextDue)
	if err := s.schedules.Update(ctx, sched); err != nil {
		return created, fmt.Errorf("update schedule: %w", err)
	}

	if s.publisher != nil && created {
		if err := s.publisher.PublishWorkSubmitted(ctx, itemID); err != nil {
			// Item уже в хранилище, worker'ы доберут его поллингом.
			s.logger.Warn("failed to publish work.submitted",
				"item_id", itemID,
				"error", err,
			)
		}
	}

	return created, nil
}
