package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/queue"
)

// Проверка соответствия контракту хранилища на этапе компиляции.
var _ queue.Store = (*WorkItemRepo)(nil)

// Колонки work_items в порядке, который ожидают scan-хелперы.
const workItemColumns = `id, payload, status, result, claimed_by, created_at, claimed_at, finished_at, updated_at`

// WorkItemRepo — Postgres-реализация хранилища WorkItems.
//
// Атомарность захвата обеспечивается блокировкой строки:
// ClaimOne выбирает кандидата через FOR UPDATE SKIP LOCKED, поэтому
// конкурирующие workers не ждут друг друга и никогда не получают
// один и тот же item.
type WorkItemRepo struct {
	pool *pgxpool.Pool
}

// NewWorkItemRepo создаёт новый WorkItemRepo.
func NewWorkItemRepo(pool *pgxpool.Pool) *WorkItemRepo {
	return &WorkItemRepo{pool: pool}
}

// Create вставляет новый item в статусе PENDING.
func (r *WorkItemRepo) Create(ctx context.Context, payload domain.Payload) (uuid.UUID, error) {
	item := domain.NewWorkItem(payload)
	if err := r.insert(ctx, item, nil); err != nil {
		return uuid.Nil, err
	}
	return item.ID, nil
}

// CreateWithKey вставляет item с ключом идемпотентности.
//
// Если item с таким ключом уже существует, возвращает его ID и
// created=false. Используется планировщиком, чтобы одно срабатывание
// расписания порождало ровно один item даже при рестартах.
func (r *WorkItemRepo) CreateWithKey(ctx context.Context, payload domain.Payload, key string) (uuid.UUID, bool, error) {
	item := domain.NewWorkItem(payload)
	err := r.insert(ctx, item, &key)
	if err == nil {
		return item.ID, true, nil
	}
	if !isUniqueViolation(err) {
		return uuid.Nil, false, err
	}

	existing, err := r.GetByKey(ctx, key)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get existing by key: %w", err)
	}
	return existing.ID, false, nil
}

func (r *WorkItemRepo) insert(ctx context.Context, item *domain.WorkItem, key *string) error {
	payloadJSON, err := json.Marshal(item.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO work_items (id, payload, status, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		item.ID,
		payloadJSON,
		item.Status,
		key,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert work item: %w", err)
	}
	return nil
}

// ClaimOne атомарно захватывает один PENDING item.
//
// Выбор кандидата и перевод в RUNNING — одно UPDATE-выражение:
// SKIP LOCKED гарантирует, что занятые другими транзакциями строки
// пропускаются, а не блокируют вызов.
func (r *WorkItemRepo) ClaimOne(ctx context.Context, workerName string) (*domain.WorkItem, error) {
	query := `
		UPDATE work_items
		SET status = 'RUNNING', claimed_by = $1, claimed_at = NOW(), updated_at = NOW()
		WHERE id = (
			SELECT id FROM work_items
			WHERE status = 'PENDING'
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + workItemColumns

	item, err := r.scanItem(r.pool.QueryRow(ctx, query, workerName))
	if errors.Is(err, ErrNotFound) {
		// Пустая очередь — не ошибка.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim work item: %w", err)
	}
	return item, nil
}

// Complete переводит RUNNING item в FINISHED и записывает результат.
func (r *WorkItemRepo) Complete(ctx context.Context, id uuid.UUID, result domain.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	query := `
		UPDATE work_items
		SET status = 'FINISHED', result = $2, finished_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'RUNNING'
	`
	tag, err := r.pool.Exec(ctx, query, id, resultJSON)
	if err != nil {
		return fmt.Errorf("complete work item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Либо item нет, либо он не RUNNING — уточняем для вызывающего.
		if _, err := r.Get(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return queue.ErrNotRunning
	}
	return nil
}

// Cancel переводит PENDING item в CANCELED.
// false означает, что item уже забран или завершён.
func (r *WorkItemRepo) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE work_items
		SET status = 'CANCELED', finished_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("cancel work item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get возвращает item по ID.
func (r *WorkItemRepo) Get(ctx context.Context, id uuid.UUID) (*domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE id = $1`
	return r.scanItem(r.pool.QueryRow(ctx, query, id))
}

// GetByKey возвращает item по ключу идемпотентности.
func (r *WorkItemRepo) GetByKey(ctx context.Context, key string) (*domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE idempotency_key = $1`
	return r.scanItem(r.pool.QueryRow(ctx, query, key))
}

// CountPending возвращает количество PENDING items.
func (r *WorkItemRepo) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM work_items WHERE status = 'PENDING'
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return count, nil
}

// CountByStatus возвращает количество items в каждом статусе.
func (r *WorkItemRepo) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM work_items GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// ListRecent возвращает items, обновлённые не раньше since.
func (r *WorkItemRepo) ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.WorkItem, error) {
	query := `
		SELECT ` + workItemColumns + `
		FROM work_items
		WHERE updated_at >= $1
		ORDER BY updated_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()

	var items []domain.WorkItem
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// DeleteFinished удаляет items в терминальных статусах.
func (r *WorkItemRepo) DeleteFinished(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM work_items WHERE status IN ('FINISHED', 'CANCELED')
	`)
	if err != nil {
		return 0, fmt.Errorf("delete finished: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteAll удаляет все items.
func (r *WorkItemRepo) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM work_items`)
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Helpers ---

// scanItem читает одну строку work_items.
// pgx.Rows реализует pgx.Row, поэтому хелпер общий для обоих путей.
func (r *WorkItemRepo) scanItem(row pgx.Row) (*domain.WorkItem, error) {
	var item domain.WorkItem
	var payloadJSON, resultJSON []byte
	var claimedBy *string

	err := row.Scan(
		&item.ID,
		&payloadJSON,
		&item.Status,
		&resultJSON,
		&claimedBy,
		&item.CreatedAt,
		&item.ClaimedAt,
		&item.FinishedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan work item: %w", err)
	}

	if err := json.Unmarshal(payloadJSON, &item.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if resultJSON != nil {
		var result domain.Result
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		item.Result = &result
	}
	if claimedBy != nil {
		item.ClaimedBy = *claimedBy
	}

	return &item, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
