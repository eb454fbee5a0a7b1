package domain

// Status — статус жизненного цикла WorkItem.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → FINISHED
//	        ↘ CANCELED (только из PENDING)
//
// FINISHED и CANCELED — терминальные статусы. Других переходов нет:
// запущенный item нельзя отменить, завершённый нельзя перезапустить.
type Status string

const (
	// StatusPending — item создан и ожидает, пока его заберёт worker.
	StatusPending Status = "PENDING"

	// StatusRunning — item забран worker'ом и выполняется.
	StatusRunning Status = "RUNNING"

	// StatusFinished — выполнение завершено, результат записан.
	// Результат может быть как успехом, так и захваченной ошибкой.
	StatusFinished Status = "FINISHED"

	// StatusCanceled — item отменён до того, как был забран worker'ом.
	StatusCanceled Status = "CANCELED"
)

// IsTerminal возвращает true, если статус финальный.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода s → next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusCanceled
	case StatusRunning:
		return next == StatusFinished
	default:
		return false
	}
}

// String возвращает строковое представление Status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus парсит строку в Status.
// Неизвестные значения возвращают пустой Status и ok=false.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "PENDING":
		return StatusPending, true
	case "RUNNING":
		return StatusRunning, true
	case "FINISHED":
		return StatusFinished, true
	case "CANCELED":
		return StatusCanceled, true
	default:
		return "", false
	}
}
