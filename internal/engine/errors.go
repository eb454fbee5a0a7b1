package engine

import "errors"

// Фатальные ошибки supervised-запуска. Любая из них означает отказ
// всего запуска; повторных попыток после них не делается.
var (
	// ErrMissingFiles — обязательный входной файл отсутствует
	// в рабочей директории. Проверяется до запуска процесса.
	ErrMissingFiles = errors.New("required input files missing")

	// ErrCommandNotFound — исполняемый файл команды не найден.
	ErrCommandNotFound = errors.New("command not found")

	// ErrNonZeroExit — процесс завершился с неприемлемым кодом,
	// и ни один обработчик не разрешил ситуацию.
	ErrNonZeroExit = errors.New("process exited with unacceptable code")

	// ErrMaxCorrections — следующая коррекция превысила бы потолок
	// MaxCorrections. Это предохранитель от бесконечного цикла retry,
	// когда обработчик не способен реально исправить условие.
	ErrMaxCorrections = errors.New("max corrections exceeded")

	// ErrHandlerFailure — сам обработчик вернул ошибку из
	// Detect/Correct/Terminate.
	ErrHandlerFailure = errors.New("handler failure")
)
