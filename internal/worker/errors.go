package worker

import "errors"

// Ошибки worker'а.
var (
	// ErrUnknownFunction — имя функции не зарегистрировано в реестре.
	ErrUnknownFunction = errors.New("unknown function")
)
