package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jacksund/warden/internal/domain"
)

// Store — контракт хранилища WorkItems.
//
// Пара (status, result) каждого item'а записывается ровно одним из двух:
// worker'ом, который его захватил, или отменяющим Future. Читатели
// никогда не мутируют.
type Store interface {
	// Create вставляет новый item в статусе PENDING и возвращает его ID.
	// Дубликаты не проверяются: каждый submit — отдельный item.
	Create(ctx context.Context, payload domain.Payload) (uuid.UUID, error)

	// ClaimOne атомарно выбирает один PENDING item, переводит его в
	// RUNNING от имени workerName и возвращает. При конкурентных вызовах
	// каждый item достаётся не более чем одному вызывающему.
	// Если PENDING items нет — (nil, nil).
	ClaimOne(ctx context.Context, workerName string) (*domain.WorkItem, error)

	// Complete переводит RUNNING item в FINISHED и записывает результат.
	// Для item'а в любом другом статусе возвращает ErrNotRunning.
	Complete(ctx context.Context, id uuid.UUID, result domain.Result) error

	// Cancel переводит PENDING item в CANCELED.
	// Возвращает false без ошибки, если item уже не PENDING:
	// отмена кооперативная и не прерывает запущенную работу.
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)

	// Get возвращает снимок item'а по ID. Только чтение.
	Get(ctx context.Context, id uuid.UUID) (*domain.WorkItem, error)

	// CountPending возвращает количество PENDING items.
	CountPending(ctx context.Context) (int, error)

	// CountByStatus возвращает количество items в каждом статусе.
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)

	// ListRecent возвращает items, обновлённые не раньше since,
	// от новых к старым, не больше limit штук.
	ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.WorkItem, error)

	// DeleteFinished удаляет все items в терминальных статусах
	// (FINISHED и CANCELED). Возвращает количество удалённых.
	DeleteFinished(ctx context.Context) (int64, error)

	// DeleteAll удаляет все items независимо от статуса.
	DeleteAll(ctx context.Context) (int64, error)
}
