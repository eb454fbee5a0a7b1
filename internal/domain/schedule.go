package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — расписание периодической отправки работы в очередь.
//
// Schedule позволяет отправлять сохранённый payload:
// - По cron-выражению: "0 9 * * *" (каждый день в 9:00)
// - По интервалу: каждые N секунд
//
// Scheduler проверяет next_due_at и создаёт WorkItem, когда время подошло.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// Name — человекочитаемое имя расписания, уникальное в хранилище.
	Name string `json:"name"`

	// Payload — работа, отправляемая при каждом срабатывании.
	Payload Payload `json:"payload"`

	// CronExpr — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Если задан CronExpr, IntervalSec игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах между отправками.
	// Используется если CronExpr не задан.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для вычисления времени.
	// По умолчанию: "UTC".
	Timezone string `json:"timezone"`

	// Enabled — флаг активности расписания.
	Enabled bool `json:"enabled"`

	// NextDueAt — время следующей отправки.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastSubmitAt — время последней отправки.
	LastSubmitAt *time.Time `json:"last_submit_at,omitempty"`

	// LastItemID — ID последнего созданного WorkItem.
	LastItemID *uuid.UUID `json:"last_item_id,omitempty"`

	// CreatedAt — время создания schedule.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// IsDue проверяет, пора ли отправлять.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.NextDueAt == nil {
		return false
	}
	return now.After(*s.NextDueAt) || now.Equal(*s.NextDueAt)
}

// RecordSubmission записывает факт отправки.
func (s *Schedule) RecordSubmission(itemID uuid.UUID, nextDue time.Time) {
	now := time.Now()
	s.LastSubmitAt = &now
	s.LastItemID = &itemID
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}
