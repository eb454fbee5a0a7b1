package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkItem — одна отправленная единица работы.
//
// WorkItem создаётся Executor'ом при submit и с этого момента живёт
// в общем хранилище. Мутируют его ровно двое:
// - worker, который успешно забрал item (PENDING→RUNNING→FINISHED);
// - Future.Cancel, и только пока item ещё PENDING.
//
// Items не удаляются автоматически — для операторов есть явные
// bulk-операции очистки.
type WorkItem struct {
	// ID — уникальный идентификатор, назначается при создании.
	ID uuid.UUID `json:"id"`

	// Payload — описание работы (функция или supervised-процесс).
	Payload Payload `json:"payload"`

	// Status — текущий статус жизненного цикла.
	Status Status `json:"status"`

	// Result — итог выполнения. nil до перехода в FINISHED.
	Result *Result `json:"result,omitempty"`

	// ClaimedBy — имя worker'а, забравшего item.
	ClaimedBy string `json:"claimed_by,omitempty"`

	// CreatedAt — время создания (submit).
	CreatedAt time.Time `json:"created_at"`

	// ClaimedAt — время перехода в RUNNING.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	// FinishedAt — время перехода в терминальный статус.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// UpdatedAt — время последнего изменения. Используется операторскими
	// выборками вида "что менялось за последние N часов".
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWorkItem создаёт WorkItem в статусе PENDING.
func NewWorkItem(payload Payload) *WorkItem {
	now := time.Now()
	return &WorkItem{
		ID:        uuid.New(),
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkRunning переводит item в RUNNING от имени worker'а.
func (w *WorkItem) MarkRunning(workerName string) {
	now := time.Now()
	w.Status = StatusRunning
	w.ClaimedBy = workerName
	w.ClaimedAt = &now
	w.UpdatedAt = now
}

// MarkFinished переводит item в FINISHED и записывает результат.
func (w *WorkItem) MarkFinished(result Result) {
	now := time.Now()
	w.Status = StatusFinished
	w.Result = &result
	w.FinishedAt = &now
	w.UpdatedAt = now
}

// MarkCanceled переводит item в CANCELED.
func (w *WorkItem) MarkCanceled() {
	now := time.Now()
	w.Status = StatusCanceled
	w.FinishedAt = &now
	w.UpdatedAt = now
}

// Duration возвращает длительность выполнения.
// Ноль, пока item не забран или ещё выполняется.
func (w *WorkItem) Duration() time.Duration {
	if w.ClaimedAt == nil || w.FinishedAt == nil {
		return 0
	}
	return w.FinishedAt.Sub(*w.ClaimedAt)
}
