package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"echo", "sleep", "http"} {
		if _, err := r.Get(name); err != nil {
			t.Errorf("builtin %q should be registered: %v", name, err)
		}
	}
}

func TestRegistry_UnknownFunction(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	if !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
}

func TestEchoFunc(t *testing.T) {
	v, err := echoFunc(context.Background(), json.RawMessage(`{"a":1,"b":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", v)
	}
	if m["b"] != "x" {
		t.Errorf("echo must return args unchanged, got %v", m)
	}

	// Без аргументов — nil без ошибки.
	v, err = echoFunc(context.Background(), nil)
	if err != nil || v != nil {
		t.Errorf("expected nil result for empty args, got %v, %v", v, err)
	}
}

func TestSleepFunc_RespectsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := sleepFunc(ctx, json.RawMessage(`{"seconds": 30}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("sleep must return promptly on cancel, took %v", elapsed)
	}
}

func TestSleepFunc_ZeroSeconds(t *testing.T) {
	v, err := sleepFunc(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["slept_seconds"] != 0.0 {
		t.Errorf("expected zero sleep result, got %v", v)
	}
}
