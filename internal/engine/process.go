package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/telemetry"
)

// Файлы, в которые перенаправляется вывод процесса. Обработчики
// обычно ищут сигнатуры отказов именно здесь. Пересоздаются при
// каждом перезапуске, так что внутри видна только текущая попытка.
const (
	StdoutFile = "stdout.log"
	StderrFile = "stderr.log"
)

// Значения по умолчанию для Config.
const (
	defaultMonitorFreq    = 10
	defaultPollInterval   = 1 * time.Second
	defaultMaxCorrections = 5
)

// Config — конфигурация одного supervised-запуска.
// Вся настройка явная: никаких глобальных умолчаний, переопределяемых
// наследованием, система не имеет.
type Config struct {
	// Command — shell-команда для запуска.
	Command string

	// Directory — рабочая директория. На время запуска принадлежит
	// этому процессу эксклюзивно.
	Directory string

	// RequiredFiles — файлы, обязанные существовать в Directory
	// до запуска.
	RequiredFiles []string

	// Handlers — обработчики в порядке приоритета. Первый
	// обнаруживший сигнатуру выигрывает проход, остальные в этом
	// проходе не опрашиваются.
	Handlers []Handler

	// MonitorFreq — каждый N-й опрос запускает Detect у мониторов
	// (default: 10).
	MonitorFreq int

	// PollInterval — период опроса состояния процесса (default: 1s).
	PollInterval time.Duration

	// MaxCorrections — потолок количества коррекций за запуск
	// (default: 5).
	MaxCorrections int

	// OKExitCodes — дополнительные коды выхода, считающиеся успехом.
	// Код 0 успешен всегда.
	OKExitCodes []int

	// Workup — необязательный постпроцессинг: извлекает доменный
	// результат из директории после успешного завершения. Тип
	// результата для движка непрозрачен.
	Workup func(dir string) (any, error)

	// Logger — логгер запуска. nil означает slog.Default().
	Logger *slog.Logger
}

// Process — один supervised-запуск внешней команды.
//
// Стадии:
//
//	SETUP → EXECUTING → (MONITORING ⇄ CORRECTING)* → TERMINATING → POSTPROCESS → DONE
//
// Без мониторов DONE достижим сразу из EXECUTING. Каждая коррекция
// перезапускает команду заново; счётчик коррекций общий на весь
// запуск и ограничен MaxCorrections.
type Process struct {
	cfg         Config
	logger      *slog.Logger
	corrections []domain.Correction
}

// Outcome — итог supervised-запуска. При фатальной ошибке Outcome
// всё равно возвращается: в нём коррекции, применённые до отказа.
type Outcome struct {
	// ExitCode — код выхода последнего (принятого) запуска команды.
	ExitCode int

	// Directory — рабочая директория запуска.
	Directory string

	// Corrections — применённые коррекции в порядке применения.
	Corrections []domain.Correction

	// Result — результат Workup. nil, если Workup не задан.
	Result any
}

// New создаёт Process с применёнными значениями по умолчанию.
func New(cfg Config) *Process {
	if cfg.MonitorFreq <= 0 {
		cfg.MonitorFreq = defaultMonitorFreq
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxCorrections <= 0 {
		cfg.MaxCorrections = defaultMaxCorrections
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Process{
		cfg:    cfg,
		logger: logger.With("command", cfg.Command, "directory", cfg.Directory),
	}
}

// Run выполняет запуск от SETUP до DONE. Вызывается один раз.
//
// Возвращённая ошибка — всегда исход самой работы (ErrMissingFiles,
// ErrCommandNotFound, ErrNonZeroExit, ErrMaxCorrections,
// ErrHandlerFailure или отмена контекста), а не инфраструктурный
// сбой движка.
func (p *Process) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{Directory: p.cfg.Directory}

	// SETUP: без обязательных файлов не стартуем.
	if err := p.setup(); err != nil {
		return out, err
	}

	for attempt := 1; ; attempt++ {
		p.logger.Debug("starting process attempt", "attempt", attempt)

		exit, accepted, restart, err := p.superviseOnce(ctx)
		out.Corrections = p.corrections
		if err != nil {
			return out, err
		}
		if restart {
			telemetry.ProcessRestarts.Inc()
			continue
		}
		out.ExitCode = exit

		// TERMINATING: код 127 — shell-конвенция "команда не найдена".
		// Фатально сразу, коррекции не применяются.
		if exit == 127 {
			return out, fmt.Errorf("command %q: %w", p.cfg.Command, ErrCommandNotFound)
		}

		// Checker-проход выполняется всегда после выхода процесса,
		// независимо от того, как закончился мониторный цикл.
		corrected, err := p.checkerPass()
		out.Corrections = p.corrections
		if err != nil {
			return out, err
		}
		if corrected {
			telemetry.ProcessRestarts.Inc()
			continue
		}

		if !accepted && !p.exitOK(exit) {
			return out, fmt.Errorf("exit code %d: %w", exit, ErrNonZeroExit)
		}

		// POSTPROCESS
		if p.cfg.Workup != nil {
			v, err := p.cfg.Workup(p.cfg.Directory)
			if err != nil {
				return out, fmt.Errorf("workup: %w", err)
			}
			out.Result = v
		}

		p.logger.Info("supervised process finished",
			"exit_code", exit,
			"attempts", attempt,
			"corrections", len(p.corrections),
		)
		return out, nil
	}
}

// setup проверяет рабочую директорию и обязательные входные файлы.
func (p *Process) setup() error {
	info, err := os.Stat(p.cfg.Directory)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("working directory %s: %w", p.cfg.Directory, ErrMissingFiles)
	}

	var missing []string
	for _, f := range p.cfg.RequiredFiles {
		if _, err := os.Stat(filepath.Join(p.cfg.Directory, f)); err != nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("files %v in %s: %w", missing, p.cfg.Directory, ErrMissingFiles)
	}
	return nil
}

// superviseOnce — один проход EXECUTING → MONITORING → TERMINATING.
//
// Возвращает:
//   - restart=true  — монитор применил коррекцию, нужен перезапуск
//   - accepted=true — монитор с собственным завершением принял
//     текущее состояние; код выхода не проверяется
//   - иначе exit — код естественного выхода процесса
func (p *Process) superviseOnce(ctx context.Context) (exit int, accepted, restart bool, err error) {
	cmd, done, err := p.start()
	if err != nil {
		return 0, false, false, err
	}

	monitors := p.monitors()

	// Без мониторов просто ждём выхода: DONE сразу из EXECUTING.
	if len(monitors) == 0 {
		select {
		case werr := <-done:
			exit, err = exitCode(werr)
			return exit, false, false, err
		case <-ctx.Done():
			p.kill(cmd)
			<-done
			return 0, false, false, fmt.Errorf("supervision aborted: %w", ctx.Err())
		}
	}

	// MONITORING: опрашиваем выход процесса на фиксированном
	// интервале; каждый MonitorFreq-й опрос запускаем детекторы.
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	polls := 0
	for {
		select {
		case werr := <-done:
			exit, err = exitCode(werr)
			return exit, accepted, false, err

		case <-ctx.Done():
			p.kill(cmd)
			<-done
			return 0, false, false, fmt.Errorf("supervision aborted: %w", ctx.Err())

		case <-ticker.C:
			polls++
			if accepted || polls%p.cfg.MonitorFreq != 0 {
				continue
			}

			for _, m := range monitors {
				sig, derr := m.Detect(p.cfg.Directory)
				if derr != nil {
					p.kill(cmd)
					<-done
					return 0, false, false, fmt.Errorf("monitor %s detect failed: %s: %w", m.Name(), derr, ErrHandlerFailure)
				}
				if sig == "" {
					continue
				}
				p.logger.Info("monitor detected failure signature", "handler", m.Name(), "signature", sig)

				// Монитор с собственным завершением сам решает,
				// нужен ли retry.
				if t, ok := m.(Terminator); ok {
					retry, terr := t.Terminate(p.cfg.Directory)
					if terr != nil {
						p.kill(cmd)
						<-done
						return 0, false, false, fmt.Errorf("monitor %s terminate failed: %s: %w", m.Name(), terr, ErrHandlerFailure)
					}
					if !retry {
						// Принимаем как есть: процесс дорабатывает,
						// коррекция не записывается.
						p.logger.Info("monitor requested early accept", "handler", m.Name())
						accepted = true
						break
					}
				}

				// Стандартное завершение: убить, исправить, перезапустить.
				p.kill(cmd)
				<-done
				if cerr := p.applyCorrection(m, sig); cerr != nil {
					return 0, false, false, cerr
				}
				return 0, false, true, nil
			}
		}
	}
}

// start запускает команду через shell с выводом в StdoutFile/StderrFile.
func (p *Process) start() (*exec.Cmd, chan error, error) {
	stdout, err := os.Create(filepath.Join(p.cfg.Directory, StdoutFile))
	if err != nil {
		return nil, nil, fmt.Errorf("create stdout log: %w", err)
	}
	stderr, err := os.Create(filepath.Join(p.cfg.Directory, StderrFile))
	if err != nil {
		stdout.Close()
		return nil, nil, fmt.Errorf("create stderr log: %w", err)
	}

	cmd := exec.Command("sh", "-c", p.cfg.Command)
	cmd.Dir = p.cfg.Directory
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Собственная группа процессов: kill должен достать и детей,
	// которых порождает shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("start %q: %w", p.cfg.Command, ErrCommandNotFound)
		}
		return nil, nil, fmt.Errorf("start process: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		werr := cmd.Wait()
		stdout.Close()
		stderr.Close()
		done <- werr
	}()
	return cmd, done, nil
}

// kill убивает группу процессов команды. Ошибки игнорируются:
// группа могла уже завершиться.
func (p *Process) kill(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

// checkerPass запускает Detect всех checker'ов по порядку против
// финального состояния директории. Первый обнаруживший выигрывает:
// его коррекция применяется, и вся машина перезапускается с EXECUTING.
func (p *Process) checkerPass() (bool, error) {
	for _, h := range p.cfg.Handlers {
		if isMonitor(h) {
			continue
		}
		sig, err := h.Detect(p.cfg.Directory)
		if err != nil {
			return false, fmt.Errorf("checker %s detect failed: %s: %w", h.Name(), err, ErrHandlerFailure)
		}
		if sig == "" {
			continue
		}
		p.logger.Info("checker detected failure signature", "handler", h.Name(), "signature", sig)
		if err := p.applyCorrection(h, sig); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// applyCorrection применяет коррекцию обработчика и записывает её.
//
// Предохранитель проверяется до применения: при потолке k
// записывается ровно k коррекций, попытка k+1-й — фатальная ошибка.
func (p *Process) applyCorrection(h Handler, signature string) error {
	if len(p.corrections) >= p.cfg.MaxCorrections {
		return fmt.Errorf("handler %s detected %q after %d corrections: %w",
			h.Name(), signature, len(p.corrections), ErrMaxCorrections)
	}

	desc, err := h.Correct(p.cfg.Directory)
	if err != nil {
		return fmt.Errorf("handler %s correct failed: %s: %w", h.Name(), err, ErrHandlerFailure)
	}

	p.corrections = append(p.corrections, domain.Correction{
		Handler:     h.Name(),
		Description: desc,
	})
	telemetry.Corrections.Inc()
	p.logger.Info("correction applied",
		"handler", h.Name(),
		"signature", signature,
		"description", desc,
		"corrections", len(p.corrections),
	)
	return nil
}

// monitors возвращает обработчики, опрашиваемые при живом процессе,
// в конфигурационном порядке.
func (p *Process) monitors() []Handler {
	var ms []Handler
	for _, h := range p.cfg.Handlers {
		if isMonitor(h) {
			ms = append(ms, h)
		}
	}
	return ms
}

// exitOK проверяет приемлемость кода выхода.
func (p *Process) exitOK(code int) bool {
	return code == 0 || slices.Contains(p.cfg.OKExitCodes, code)
}

// exitCode извлекает код выхода из ошибки Wait.
func exitCode(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("wait process: %w", waitErr)
}
