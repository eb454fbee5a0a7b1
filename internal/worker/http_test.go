package worker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Тесты встроенной функции http: запросы идут в локальный httptest-сервер.

func callHTTPFunc(t *testing.T, args any) map[string]any {
	t.Helper()

	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}

	value, err := httpFunc(context.Background(), raw)
	if err != nil {
		t.Fatalf("httpFunc: %v", err)
	}

	m, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("unexpected value type %T", value)
	}
	return m
}

func TestHTTPFunc_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer": 42}`))
	}))
	defer srv.Close()

	m := callHTTPFunc(t, map[string]any{"url": srv.URL})

	if code := m["status_code"].(int); code != http.StatusOK {
		t.Errorf("status_code = %d, want 200", code)
	}
	body, ok := m["body"].(map[string]any)
	if !ok {
		t.Fatalf("body is %T, want decoded JSON object", m["body"])
	}
	if body["answer"] != float64(42) {
		t.Errorf("body.answer = %v, want 42", body["answer"])
	}
}

func TestHTTPFunc_PostBody(t *testing.T) {
	var gotBody string
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	m := callHTTPFunc(t, map[string]any{
		"method": "post",
		"url":    srv.URL,
		"body":   map[string]any{"name": "test"},
	})

	if code := m["status_code"].(int); code != http.StatusCreated {
		t.Errorf("status_code = %d, want 201", code)
	}
	if gotBody != `{"name":"test"}` {
		t.Errorf("server received body %q", gotBody)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
}

func TestHTTPFunc_TextBodyAsString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain text"))
	}))
	defer srv.Close()

	m := callHTTPFunc(t, map[string]any{"url": srv.URL})

	if body, ok := m["body"].(string); !ok || body != "plain text" {
		t.Errorf("body = %v (%T), want string \"plain text\"", m["body"], m["body"])
	}
}

func TestHTTPFunc_ErrorStatusIsStillValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	// 500 — результат, а не отказ: решает вызывающая сторона.
	m := callHTTPFunc(t, map[string]any{"url": srv.URL})

	if code := m["status_code"].(int); code != http.StatusInternalServerError {
		t.Errorf("status_code = %d, want 500", code)
	}
}

func TestHTTPFunc_NoFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	m := callHTTPFunc(t, map[string]any{
		"url":              srv.URL,
		"follow_redirects": false,
	})

	if code := m["status_code"].(int); code != http.StatusFound {
		t.Errorf("status_code = %d, want 302", code)
	}
}

func TestHTTPFunc_RequiresURL(t *testing.T) {
	_, err := httpFunc(context.Background(), json.RawMessage(`{"method": "GET"}`))
	if err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestHTTPFunc_CustomHeaders(t *testing.T) {
	var gotHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Token")
	}))
	defer srv.Close()

	callHTTPFunc(t, map[string]any{
		"url":     srv.URL,
		"headers": map[string]string{"X-Token": "secret"},
	})

	if gotHeader != "secret" {
		t.Errorf("X-Token = %q, want %q", gotHeader, "secret")
	}
}
