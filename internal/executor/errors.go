package executor

import "errors"

// Ошибки ожидания результата.
var (
	// ErrCancelled — item отменён до того, как его забрал worker.
	ErrCancelled = errors.New("work item cancelled")

	// ErrWaitTimeout — результат не появился за отведённое время.
	// Сам item при этом продолжает жить в очереди.
	ErrWaitTimeout = errors.New("timed out waiting for result")
)
