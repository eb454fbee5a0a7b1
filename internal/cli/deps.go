package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jacksund/warden/internal/mq"
	"github.com/jacksund/warden/internal/repo"
)

// Deps — ленивые зависимости команд.
//
// CLI работает с хранилищем напрямую, без промежуточного API.
// Подключение к базе и брокеру происходит после разбора флагов
// и только если команда его действительно требует: справка и ошибки
// валидации не должны ждать сеть.
type Deps struct {
	outputFn func() *Output
	dbURLFn  func() string

	mu   sync.Mutex
	pool *pgxpool.Pool
	conn *mq.Connection
}

// NewDeps создаёт Deps. Обе функции вызываются после разбора
// PersistentFlags, когда значения флагов уже известны. Пустой
// результат dbURLFn означает "взять DB_URL из окружения".
func NewDeps(outputFn func() *Output, dbURLFn func() string) *Deps {
	return &Deps{outputFn: outputFn, dbURLFn: dbURLFn}
}

// Output возвращает форматтер вывода.
func (d *Deps) Output() *Output {
	return d.outputFn()
}

// Items возвращает хранилище work items, подключаясь при первом вызове.
func (d *Deps) Items(ctx context.Context) (*repo.WorkItemRepo, error) {
	pool, err := d.getPool(ctx)
	if err != nil {
		return nil, err
	}
	return repo.NewWorkItemRepo(pool), nil
}

// Schedules возвращает хранилище расписаний.
func (d *Deps) Schedules(ctx context.Context) (*repo.ScheduleRepo, error) {
	pool, err := d.getPool(ctx)
	if err != nil {
		return nil, err
	}
	return repo.NewScheduleRepo(pool), nil
}

// ConnectMQ подключается к RabbitMQ. В отличие от базы, брокер для
// CLI необязателен: вызывающая команда сама решает, деградировать
// или падать.
func (d *Deps) ConnectMQ() (*mq.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return d.conn, nil
	}

	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = mq.DefaultURL()
	}

	// Служебные логи соединения CLI не нужны.
	conn, err := mq.NewConnection(url, discardLogger())
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	d.conn = conn
	return conn, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Close освобождает открытые подключения.
func (d *Deps) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *Deps) getPool(ctx context.Context) (*pgxpool.Pool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool != nil {
		return d.pool, nil
	}

	var pool *pgxpool.Pool
	var err error
	if url := d.dbURLFn(); url != "" {
		pool, err = repo.NewPoolDSN(ctx, url)
	} else {
		pool, err = repo.NewPool(ctx)
	}
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	d.pool = pool
	return pool, nil
}
