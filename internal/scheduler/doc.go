// Package scheduler — периодическая отправка работы по расписаниям.
//
// # Обзор
//
// Scheduler раз в тик выбирает расписания с истекшим next_due_at
// и кладёт их payload'ы в очередь работы. Дубликаты при параллельных
// тиках исключает ключ идемпотентности "{schedule_id}_{due_unix}":
// уникальный индекс хранилища пропускает только один item на каждое
// срабатывание.
//
// Структура:
//   - scheduler.go — Tick и обработка одного расписания
//   - cron.go      — вычисление следующего срабатывания
//     (cron-выражения через robfig/cron, интервалы в секундах)
//
// # Лидерство
//
// Сам Scheduler выборов лидера не делает: это забота main через
// pg_try_advisory_lock. Tick зовёт только лидер; ключ идемпотентности
// подстраховывает на случай двух лидеров в момент передачи блокировки.
package scheduler
