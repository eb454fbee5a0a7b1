package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPatternHandler_Detect(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "run.log"), []byte("step 1 ok\nERROR: out of memory\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := NewPatternHandler("oom", "run.log", `ERROR: out of \w+`, "settings.txt", "reduce_memory")
	if err != nil {
		t.Fatal(err)
	}

	sig, err := h.Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig != "ERROR: out of memory" {
		t.Errorf("expected matched text as signature, got %q", sig)
	}
}

func TestPatternHandler_Detect_NoMatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "run.log"), []byte("all good\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := NewPatternHandler("oom", "run.log", "ERROR", "settings.txt", "fix")
	if err != nil {
		t.Fatal(err)
	}

	sig, err := h.Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig != "" {
		t.Errorf("expected empty signature, got %q", sig)
	}
}

// Отсутствие файла — не сигнатура: процесс мог ещё не создать вывод.
func TestPatternHandler_Detect_MissingFile(t *testing.T) {
	dir := t.TempDir()
	h, err := NewPatternHandler("oom", "missing.log", "ERROR", "settings.txt", "fix")
	if err != nil {
		t.Fatal(err)
	}

	sig, err := h.Detect(dir)
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if sig != "" {
		t.Errorf("expected empty signature, got %q", sig)
	}
}

func TestPatternHandler_Correct_Appends(t *testing.T) {
	dir := t.TempDir()
	h, err := NewPatternHandler("oom", "run.log", "ERROR", "settings.txt", "reduce_memory")
	if err != nil {
		t.Fatal(err)
	}

	// Две коррекции подряд дописывают, а не перезаписывают.
	if _, err := h.Correct(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Correct(dir); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "settings.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "reduce_memory"); got != 2 {
		t.Errorf("expected 2 appended lines, got %d in %q", got, data)
	}
}

func TestNewPatternHandler_BadPattern(t *testing.T) {
	if _, err := NewPatternHandler("bad", "f", "(", "fix", "x"); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestStalledOutputMonitor_Detect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	if err := os.WriteFile(path, []byte("working\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &StalledOutputMonitor{Label: "stalled", File: "out.log", StaleAfter: time.Minute}

	// Свежий файл тревоги не вызывает.
	sig, err := m.Detect(dir)
	if err != nil {
		t.Fatal(err)
	}
	if sig != "" {
		t.Errorf("fresh file must not trigger, got %q", sig)
	}

	// Состариваем mtime за порог.
	old := time.Now().Add(-2 * time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	sig, err = m.Detect(dir)
	if err != nil {
		t.Fatal(err)
	}
	if sig == "" {
		t.Error("stale file must trigger a signature")
	}
}

func TestStalledOutputMonitor_MissingFile(t *testing.T) {
	dir := t.TempDir()
	m := &StalledOutputMonitor{Label: "stalled", File: "out.log", StaleAfter: time.Minute}

	sig, err := m.Detect(dir)
	if err != nil {
		t.Fatal(err)
	}
	if sig != "" {
		t.Errorf("missing file must not trigger, got %q", sig)
	}
}

func TestEarlyStopMonitor_TerminateAndMarker(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "out.log"), []byte("converged early\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewEarlyStopMonitor("early", "out.log", "converged", true)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsMonitor() {
		t.Error("early stop handler must be a monitor")
	}

	sig, err := m.Detect(dir)
	if err != nil {
		t.Fatal(err)
	}
	if sig != "converged" {
		t.Errorf("expected signature, got %q", sig)
	}

	retry, err := m.Terminate(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !retry {
		t.Error("expected configured retry=true")
	}

	if _, err := m.Correct(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "early_stop")); err != nil {
		t.Errorf("marker file should exist: %v", err)
	}
}

func TestEarlyStopMonitor_NoRetry(t *testing.T) {
	m, err := NewEarlyStopMonitor("accept", "out.log", "done", false)
	if err != nil {
		t.Fatal(err)
	}

	retry, err := m.Terminate(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if retry {
		t.Error("expected configured retry=false")
	}
}
