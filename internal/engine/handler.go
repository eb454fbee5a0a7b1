package engine

// Handler — пара «детектор + корректор» для одной конкретной
// сигнатуры отказа.
//
// Обработчики не несут состояния между запусками: один экземпляр
// безопасно переиспользуется многими запусками и многими workers
// одновременно. Всё, что обработчику нужно знать о запуске, он
// читает из рабочей директории.
type Handler interface {
	// Name возвращает имя обработчика. Под этим именем обработчик
	// регистрируется в Registry и записывается в Corrections.
	Name() string

	// Detect инспектирует артефакты в dir (обычно stdout/stderr или
	// выходные файлы) и возвращает непустую сигнатуру, если условие
	// отказа присутствует. Detect обязан быть свободен от побочных
	// эффектов.
	Detect(dir string) (string, error)

	// Correct мутирует входы в dir так, чтобы устранить обнаруженное
	// условие, и возвращает человекочитаемое описание сделанного.
	// Вызывается не более одного раза на обнаруженную сигнатуру
	// за попытку.
	Correct(dir string) (string, error)
}

// Monitor — Handler, опрашиваемый периодически, пока процесс ещё жив.
// Обычный Handler (checker) вызывается только после выхода процесса.
type Monitor interface {
	Handler

	// IsMonitor возвращает true, если обработчик нужно опрашивать
	// во время работы процесса. Позволяет одному типу работать
	// и как checker, и как monitor, в зависимости от конфигурации.
	IsMonitor() bool
}

// Terminator — Monitor с собственным поведением завершения вместо
// стандартного «убить процесс».
//
// Когда такой монитор обнаружил сигнатуру, Terminate решает судьбу
// запуска: true — убить процесс, применить коррекцию и перезапустить;
// false — принять текущее состояние как результат, дать процессу
// доработать и не записывать коррекцию. Путь false существует именно
// для того, чтобы монитор мог запросить чистое досрочное завершение.
type Terminator interface {
	Monitor

	// Terminate решает, нужен ли retry после обнаружения сигнатуры.
	Terminate(dir string) (retry bool, err error)
}

// isMonitor возвращает true для обработчиков, опрашиваемых при
// живом процессе.
func isMonitor(h Handler) bool {
	m, ok := h.(Monitor)
	return ok && m.IsMonitor()
}
