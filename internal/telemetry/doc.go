// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog (LOG_LEVEL, LOG_FORMAT)
//   - metrics.go — Prometheus метрики очереди и supervised-процессов
//
// Каждый бинарник вызывает SetupLogger(service) один раз при старте
// и экспортирует метрики на своём /metrics endpoint.
package telemetry
