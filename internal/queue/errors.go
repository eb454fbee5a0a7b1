package queue

import "errors"

// Общие ошибки хранилища WorkItems.
var (
	// ErrNotFound — item с таким ID не существует.
	ErrNotFound = errors.New("work item not found")

	// ErrNotRunning — Complete вызван для item'а не в статусе RUNNING.
	ErrNotRunning = errors.New("work item is not running")
)
