package engine

import "testing"

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	a := &testHandler{name: "a"}
	b := &testHandler{name: "b"}
	r.Register(a)
	r.Register(b)

	handlers, err := r.Resolve([]string{"b", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Порядок имён — порядок приоритета, реестр его не переставляет.
	if len(handlers) != 2 || handlers[0].Name() != "b" || handlers[1].Name() != "a" {
		t.Errorf("expected [b a], got %v", handlerNames(handlers))
	}
}

func TestRegistry_UnknownHandler(t *testing.T) {
	r := NewRegistry()
	r.Register(&testHandler{name: "known"})

	if _, err := r.Get("unknown"); err == nil {
		t.Error("expected error for unknown handler")
	}
	if _, err := r.Resolve([]string{"known", "unknown"}); err == nil {
		t.Error("resolve must fail on any unknown name")
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	first := &testHandler{name: "dup"}
	second := &testHandler{name: "dup"}
	r.Register(first)
	r.Register(second)

	got, err := r.Get("dup")
	if err != nil {
		t.Fatal(err)
	}
	if got != Handler(second) {
		t.Error("later registration must replace the earlier one")
	}
}

func handlerNames(hs []Handler) []string {
	names := make([]string, len(hs))
	for i, h := range hs {
		names[i] = h.Name()
	}
	return names
}
