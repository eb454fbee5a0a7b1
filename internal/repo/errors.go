package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jacksund/warden/internal/queue"
)

// Контрактные ошибки хранилища WorkItems объявлены в пакете queue;
// репозитории возвращают их же, чтобы вызывающие могли проверять
// errors.Is не зная реализации.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = queue.ErrNotFound

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")
)

// isUniqueViolation возвращает true для нарушения unique-констрейнта
// (код PostgreSQL 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
