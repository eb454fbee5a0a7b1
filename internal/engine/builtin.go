package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Встроенные обработчики. Они не знают семантики конкретных внешних
// бинарников: всё поведение задаётся данными (файл, шаблон, текст
// исправления), поэтому их можно собирать из декларативных payload'ов.

// PatternHandler — обработчик «сигнатура по регулярному выражению».
//
// Detect ищет Pattern в File; Correct дописывает FixText в FixFile.
// Скрипт при перезапуске читает FixFile и меняет своё поведение.
// AsMonitor управляет тем, опрашивается ли обработчик при живом
// процессе или только после выхода.
type PatternHandler struct {
	Label     string
	File      string
	FixFile   string
	FixText   string
	AsMonitor bool

	pattern *regexp.Regexp
}

// NewPatternHandler компилирует pattern и собирает обработчик.
func NewPatternHandler(label, file, pattern, fixFile, fixText string) (*PatternHandler, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &PatternHandler{
		Label:   label,
		File:    file,
		FixFile: fixFile,
		FixText: fixText,
		pattern: re,
	}, nil
}

// Name возвращает имя обработчика.
func (h *PatternHandler) Name() string { return h.Label }

// IsMonitor возвращает режим опроса.
func (h *PatternHandler) IsMonitor() bool { return h.AsMonitor }

// Detect ищет шаблон в файле. Отсутствие файла — не сигнатура:
// процесс мог его ещё не создать.
func (h *PatternHandler) Detect(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, h.File))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", h.File, err)
	}

	if !h.pattern.Match(data) {
		return "", nil
	}
	if sig := h.pattern.FindString(string(data)); sig != "" {
		return sig, nil
	}
	return h.pattern.String(), nil
}

// Correct дописывает строку исправления в FixFile.
func (h *PatternHandler) Correct(dir string) (string, error) {
	f, err := os.OpenFile(filepath.Join(dir, h.FixFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", h.FixFile, err)
	}
	defer f.Close()

	if _, err := f.WriteString(h.FixText + "\n"); err != nil {
		return "", fmt.Errorf("append to %s: %w", h.FixFile, err)
	}
	return fmt.Sprintf("appended %q to %s", h.FixText, h.FixFile), nil
}

// StalledOutputMonitor — сторожевой монитор «вывод замер».
//
// Сигнатура: файл File не менялся дольше StaleAfter. Коррекция сама
// по себе ничего не меняет — лечением служит перезапуск процесса.
// Монитор без состояния: решение принимается по mtime файла, поэтому
// один экземпляр безопасен для любых конкурентных запусков.
type StalledOutputMonitor struct {
	Label      string
	File       string
	StaleAfter time.Duration
}

// Name возвращает имя обработчика.
func (m *StalledOutputMonitor) Name() string { return m.Label }

// IsMonitor всегда true: после выхода процесса «замерший вывод»
// не имеет смысла.
func (m *StalledOutputMonitor) IsMonitor() bool { return true }

// Detect сравнивает возраст файла со StaleAfter. Отсутствие файла
// не считается сигнатурой: о ещё не созданном выводе судить нельзя.
func (m *StalledOutputMonitor) Detect(dir string) (string, error) {
	info, err := os.Stat(filepath.Join(dir, m.File))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", m.File, err)
	}

	age := time.Since(info.ModTime())
	if age < m.StaleAfter {
		return "", nil
	}
	return fmt.Sprintf("%s not updated for %s", m.File, age.Round(time.Second)), nil
}

// Correct не меняет входов.
func (m *StalledOutputMonitor) Correct(string) (string, error) {
	return "no input changes; stalled process restarted", nil
}

// EarlyStopMonitor — монитор с собственным поведением завершения.
//
// Обнаружив Pattern в File, решает судьбу запуска значением Retry:
// false — принять текущее состояние как результат (чистое досрочное
// завершение), true — убить процесс, оставить маркер и перезапустить.
type EarlyStopMonitor struct {
	Label      string
	File       string
	Retry      bool
	MarkerFile string // default: "early_stop"

	pattern *regexp.Regexp
}

// NewEarlyStopMonitor компилирует pattern и собирает монитор.
func NewEarlyStopMonitor(label, file, pattern string, retry bool) (*EarlyStopMonitor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &EarlyStopMonitor{
		Label:      label,
		File:       file,
		Retry:      retry,
		MarkerFile: "early_stop",
		pattern:    re,
	}, nil
}

// Name возвращает имя обработчика.
func (m *EarlyStopMonitor) Name() string { return m.Label }

// IsMonitor всегда true.
func (m *EarlyStopMonitor) IsMonitor() bool { return true }

// Detect ищет шаблон в файле.
func (m *EarlyStopMonitor) Detect(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, m.File))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", m.File, err)
	}

	if !m.pattern.Match(data) {
		return "", nil
	}
	if sig := m.pattern.FindString(string(data)); sig != "" {
		return sig, nil
	}
	return m.pattern.String(), nil
}

// Terminate возвращает настроенное решение.
func (m *EarlyStopMonitor) Terminate(string) (bool, error) {
	return m.Retry, nil
}

// Correct оставляет маркер для перезапущенного процесса.
// Вызывается только на пути retry=true.
func (m *EarlyStopMonitor) Correct(dir string) (string, error) {
	marker := m.MarkerFile
	if marker == "" {
		marker = "early_stop"
	}
	if err := os.WriteFile(filepath.Join(dir, marker), []byte(m.pattern.String()+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", marker, err)
	}
	return fmt.Sprintf("wrote %s marker", marker), nil
}
