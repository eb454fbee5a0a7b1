package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/queue"
)

// defaultResultPollInterval — период опроса хранилища в Result.
const defaultResultPollInterval = 500 * time.Millisecond

// Future — handle на отправленный item.
//
// Future не владеет выполнением: это читающее окно в хранилище плюс
// право на кооперативную отмену. Несколько Future на один item
// безопасны, состояние у них общее.
type Future struct {
	id    uuid.UUID
	store queue.Store
}

// ID возвращает идентификатор item'а.
func (f *Future) ID() uuid.UUID {
	return f.id
}

// Cancel пытается отменить item до начала выполнения.
//
// Отмена кооперативная: успевает только пока item PENDING. Возвращает
// false без ошибки, если item уже захвачен, завершён или отменён —
// запущенную работу Cancel не прерывает.
func (f *Future) Cancel(ctx context.Context) (bool, error) {
	return f.store.Cancel(ctx, f.id)
}

// Cancelled сообщает, отменён ли item.
func (f *Future) Cancelled(ctx context.Context) (bool, error) {
	item, err := f.store.Get(ctx, f.id)
	if err != nil {
		return false, err
	}
	return item.Status == domain.StatusCanceled, nil
}

// Running сообщает, выполняется ли item прямо сейчас.
func (f *Future) Running(ctx context.Context) (bool, error) {
	item, err := f.store.Get(ctx, f.id)
	if err != nil {
		return false, err
	}
	return item.Status == domain.StatusRunning, nil
}

// Done сообщает, достиг ли item терминального статуса.
func (f *Future) Done(ctx context.Context) (bool, error) {
	item, err := f.store.Get(ctx, f.id)
	if err != nil {
		return false, err
	}
	return item.Status.IsTerminal(), nil
}

// Result блокируется до появления результата и возвращает его.
//
// Опрос хранилища идёт каждые pollInterval (0 — 500ms). timeout
// ограничивает ожидание (0 — ждать без предела); по его истечении
// возвращается ErrWaitTimeout, item продолжает жить.
//
// Захваченная ошибка работы поднимается здесь как *domain.JobError:
// вызывающий различает виды отказов по Kind даже после round-trip
// через хранилище. Отменённый item — ErrCancelled.
func (f *Future) Result(ctx context.Context, timeout, pollInterval time.Duration) (json.RawMessage, error) {
	if pollInterval <= 0 {
		pollInterval = defaultResultPollInterval
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		item, err := f.store.Get(ctx, f.id)
		if err != nil {
			return nil, fmt.Errorf("get work item %s: %w", f.id, err)
		}

		switch item.Status {
		case domain.StatusFinished:
			if item.Result == nil {
				return nil, fmt.Errorf("work item %s finished without a result", f.id)
			}
			if item.Result.OK {
				return item.Result.Value, nil
			}
			return nil, item.Result.Error

		case domain.StatusCanceled:
			return nil, fmt.Errorf("work item %s: %w", f.id, ErrCancelled)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, fmt.Errorf("work item %s after %s: %w", f.id, timeout, ErrWaitTimeout)
		case <-ticker.C:
		}
	}
}
