package domain

import (
	"encoding/json"
	"fmt"
)

// Виды ошибок выполнения. Сохраняются в Result и переживают
// сериализацию, чтобы вызывающая сторона могла различать причины
// отказа после round-trip через хранилище.
const (
	// ErrKindMissingFiles — обязательный входной файл отсутствует.
	ErrKindMissingFiles = "missing_files"

	// ErrKindCommandNotFound — исполняемый файл не найден.
	ErrKindCommandNotFound = "command_not_found"

	// ErrKindNonZeroExit — процесс завершился с неприемлемым кодом,
	// и ни один обработчик не разрешил ситуацию.
	ErrKindNonZeroExit = "nonzero_exit"

	// ErrKindMaxCorrections — превышен потолок коррекций.
	ErrKindMaxCorrections = "max_corrections"

	// ErrKindHandler — сам обработчик вернул ошибку из Detect/Correct.
	ErrKindHandler = "handler"

	// ErrKindPanic — функция запаниковала внутри worker'а.
	ErrKindPanic = "panic"

	// ErrKindError — прочая ошибка, возвращённая работой.
	ErrKindError = "error"
)

// JobError — захваченная ошибка выполнения работы.
//
// Ошибка, возникшая внутри работы, никогда не роняет worker: она
// сериализуется сюда, сохраняется как результат item'а и повторно
// поднимается только у того, кто инспектирует Future.
type JobError struct {
	// Kind — вид ошибки (константы ErrKind*).
	Kind string `json:"kind"`

	// Message — текст исходной ошибки.
	Message string `json:"message"`

	// Corrections — коррекции, применённые до отказа.
	// Заполняется только для supervised-процессов.
	Corrections []Correction `json:"corrections,omitempty"`
}

// Error реализует интерфейс error.
func (e *JobError) Error() string {
	if e.Kind == "" || e.Kind == ErrKindError {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Result — итог выполнения WorkItem.
//
// Tagged-конверт: либо успешное значение, либо захваченная ошибка.
// По флагу OK слой Future решает, вернуть значение или поднять ошибку.
type Result struct {
	// OK — true, если работа завершилась успешно.
	OK bool `json:"ok"`

	// Value — сериализованное успешное значение. nil при OK == false.
	Value json.RawMessage `json:"value,omitempty"`

	// Error — захваченная ошибка. nil при OK == true.
	Error *JobError `json:"error,omitempty"`
}

// NewValueResult собирает успешный результат.
// Значение маршалится в JSON; ошибка маршалинга сама становится
// захваченной ошибкой, потому что терять результат молча нельзя.
func NewValueResult(v any) Result {
	if v == nil {
		return Result{OK: true}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return NewErrorResult(ErrKindError, fmt.Sprintf("marshal result value: %v", err), nil)
	}
	return Result{OK: true, Value: b}
}

// NewErrorResult собирает результат-ошибку.
func NewErrorResult(kind, message string, corrections []Correction) Result {
	return Result{
		OK: false,
		Error: &JobError{
			Kind:        kind,
			Message:     message,
			Corrections: corrections,
		},
	}
}

// ProcessOutcome — результат supervised-процесса по умолчанию.
//
// Если вызывающая сторона не задала собственный workup, в Result.Value
// попадает именно эта структура.
type ProcessOutcome struct {
	// ExitCode — код выхода финального (принятого) запуска процесса.
	ExitCode int `json:"exit_code"`

	// Directory — рабочая директория запуска.
	Directory string `json:"directory"`

	// Corrections — применённые коррекции в порядке применения.
	Corrections []Correction `json:"corrections,omitempty"`
}
