// Package engine выполняет одну внешнюю команду под надзором
// обработчиков ошибок.
//
// # Обзор
//
// Долгие внешние вычисления (сторонние simulation-бинарники) умеют
// падать посреди работы. Engine запускает такую команду, следит за
// известными сигнатурами отказов — в том числе пока процесс ещё
// работает — и применяет ограниченное число автоматических коррекций
// с перезапуском, прежде чем признать запуск неудачным.
//
// Машина состояний одного запуска:
//
//	SETUP → EXECUTING → (MONITORING ⇄ CORRECTING)* → TERMINATING → POSTPROCESS → DONE
//
//   - SETUP       — проверка обязательных входных файлов
//   - EXECUTING   — запуск команды в рабочей директории
//   - MONITORING  — опрос процесса; каждый MonitorFreq-й опрос
//     запускает Detect у мониторов
//   - CORRECTING  — убить процесс, применить коррекцию, перезапустить
//   - TERMINATING — чтение кода выхода, checker-проход
//   - POSTPROCESS — опциональный workup из директории
//
// # Обработчики
//
// Handler — пара «детектор + корректор» для одной сигнатуры отказа:
//
//	type Handler interface {
//	    Name() string
//	    Detect(dir string) (string, error)
//	    Correct(dir string) (string, error)
//	}
//
// Monitor опрашивается при живом процессе, обычный Handler (checker) —
// только после выхода. Terminator — монитор, сам решающий, перезапускать
// ли процесс (retry) или принять текущее состояние как результат.
//
// Порядок обработчиков в Config задаёт приоритет: первый обнаруживший
// сигнатуру выигрывает проход, остальные не опрашиваются.
//
// # Использование
//
//	p := engine.New(engine.Config{
//	    Command:        "run-simulation --input INCAR",
//	    Directory:      workdir,
//	    RequiredFiles:  []string{"INCAR"},
//	    Handlers:       []engine.Handler{oomHandler, stallMonitor},
//	    MaxCorrections: 5,
//	    PollInterval:   time.Second,
//	    MonitorFreq:    10,
//	})
//
//	out, err := p.Run(ctx)
//
// Run возвращает Outcome даже при ошибке: в нём коррекции,
// применённые до отказа.
//
// # Предохранитель
//
// Перед каждой коррекцией счётчик сравнивается с MaxCorrections.
// При потолке k записывается ровно k коррекций; попытка k+1-й
// завершает запуск ошибкой ErrMaxCorrections. Это защита от
// обработчика, который детектирует условие, но не способен его
// реально исправить.
package engine
