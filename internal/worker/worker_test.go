package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/queue"
)

// mustSubmit кладёт function-payload в хранилище.
func mustSubmit(t *testing.T, store queue.Store, fn string, args any) *domain.WorkItem {
	t.Helper()
	payload, err := domain.NewFunctionPayload(fn, args)
	if err != nil {
		t.Fatal(err)
	}
	id, err := store.Create(context.Background(), payload)
	if err != nil {
		t.Fatal(err)
	}
	item, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return item
}

// drain запускает worker в режиме "выполнить всё и выйти" и ждёт
// завершения цикла.
func drain(t *testing.T, w *Worker) {
	t.Helper()
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not finish in time")
	}
	w.Stop()
}

func TestWorker_ProcessesFunctionItem(t *testing.T) {
	store := queue.NewMemoryStore()
	reg := NewRegistry()
	reg.Register("double", func(_ context.Context, args json.RawMessage) (any, error) {
		var n float64
		if err := json.Unmarshal(args, &n); err != nil {
			return nil, err
		}
		return n * 2, nil
	})

	item := mustSubmit(t, store, "double", 21)

	w := New(Config{
		Store:             store,
		Functions:         reg,
		CloseOnEmptyQueue: true,
		PollInterval:      10 * time.Millisecond,
		Name:              "test-worker",
	})
	drain(t, w)

	got, err := store.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusFinished {
		t.Fatalf("expected FINISHED, got %s", got.Status)
	}
	if got.ClaimedBy != "test-worker" {
		t.Errorf("expected claimed_by test-worker, got %q", got.ClaimedBy)
	}
	if got.Result == nil || !got.Result.OK {
		t.Fatalf("expected ok result, got %+v", got.Result)
	}

	var v float64
	if err := json.Unmarshal(got.Result.Value, &v); err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %v", v)
	}
}

// Закон захвата: ошибка функции не роняет worker, а сериализуется
// в результат item'а.
func TestWorker_CapturesFunctionError(t *testing.T) {
	store := queue.NewMemoryStore()
	reg := NewRegistry()
	reg.Register("fail", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("deliberate failure")
	})

	item := mustSubmit(t, store, "fail", nil)

	w := New(Config{
		Store:             store,
		Functions:         reg,
		CloseOnEmptyQueue: true,
		PollInterval:      10 * time.Millisecond,
	})
	drain(t, w)

	got, err := store.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusFinished {
		t.Fatalf("expected FINISHED, got %s", got.Status)
	}
	if got.Result.OK {
		t.Fatal("expected error result")
	}
	if got.Result.Error.Kind != domain.ErrKindError {
		t.Errorf("expected kind %q, got %q", domain.ErrKindError, got.Result.Error.Kind)
	}
	if got.Result.Error.Message != "deliberate failure" {
		t.Errorf("expected original message, got %q", got.Result.Error.Message)
	}
}

func TestWorker_CapturesPanic(t *testing.T) {
	store := queue.NewMemoryStore()
	reg := NewRegistry()
	reg.Register("boom", func(context.Context, json.RawMessage) (any, error) {
		panic("unexpected state")
	})

	item := mustSubmit(t, store, "boom", nil)
	// Item после паникующего: worker обязан дожить до него.
	next := mustSubmit(t, store, "echo", "still alive")

	w := New(Config{
		Store:             store,
		Functions:         reg,
		CloseOnEmptyQueue: true,
		PollInterval:      10 * time.Millisecond,
	})
	drain(t, w)

	got, err := store.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusFinished {
		t.Fatalf("worker must survive a panic and finish the item, got %s", got.Status)
	}
	if got.Result.OK {
		t.Fatal("expected error result")
	}
	if got.Result.Error.Kind != domain.ErrKindPanic {
		t.Errorf("expected kind %q, got %q", domain.ErrKindPanic, got.Result.Error.Kind)
	}

	after, err := store.Get(context.Background(), next.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != domain.StatusFinished || !after.Result.OK {
		t.Errorf("worker must keep serving items after a panic, got %s", after.Status)
	}
}

func TestWorker_UnknownFunction(t *testing.T) {
	store := queue.NewMemoryStore()
	item := mustSubmit(t, store, "no-such-function", nil)

	w := New(Config{
		Store:             store,
		CloseOnEmptyQueue: true,
		PollInterval:      10 * time.Millisecond,
	})
	drain(t, w)

	got, err := store.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Result.OK {
		t.Fatal("expected error result")
	}
	if got.Result.Error.Kind != domain.ErrKindError {
		t.Errorf("expected kind %q, got %q", domain.ErrKindError, got.Result.Error.Kind)
	}
}

func TestWorker_MaxItems(t *testing.T) {
	store := queue.NewMemoryStore()
	for i := 0; i < 3; i++ {
		mustSubmit(t, store, "echo", "x")
	}

	w := New(Config{
		Store:        store,
		MaxItems:     1,
		PollInterval: 10 * time.Millisecond,
	})
	drain(t, w)

	counts, err := store.CountByStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts[domain.StatusFinished] != 1 {
		t.Errorf("expected 1 finished, got %d", counts[domain.StatusFinished])
	}
	if counts[domain.StatusPending] != 2 {
		t.Errorf("expected 2 still pending, got %d", counts[domain.StatusPending])
	}
}

func TestWorker_CloseOnEmptyQueue(t *testing.T) {
	w := New(Config{
		Store:             queue.NewMemoryStore(),
		CloseOnEmptyQueue: true,
		PollInterval:      10 * time.Millisecond,
	})

	start := time.Now()
	drain(t, w)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("empty queue should stop the worker promptly, took %v", elapsed)
	}
}

func TestWorker_ProcessPayload(t *testing.T) {
	store := queue.NewMemoryStore()
	dir := t.TempDir()

	id, err := store.Create(context.Background(), domain.NewProcessPayload(domain.ProcessSpec{
		Command:   "echo done > out.txt",
		Directory: dir,
	}))
	if err != nil {
		t.Fatal(err)
	}

	w := New(Config{
		Store:             store,
		CloseOnEmptyQueue: true,
		PollInterval:      10 * time.Millisecond,
	})
	drain(t, w)

	got, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Result.OK {
		t.Fatalf("expected ok result, got %+v", got.Result.Error)
	}

	var outcome domain.ProcessOutcome
	if err := json.Unmarshal(got.Result.Value, &outcome); err != nil {
		t.Fatal(err)
	}
	if outcome.ExitCode != 0 {
		t.Errorf("expected exit 0, got %d", outcome.ExitCode)
	}
	if outcome.Directory != dir {
		t.Errorf("expected directory %s, got %s", dir, outcome.Directory)
	}
}

// Вид ошибки движка переживает сериализацию в результат.
func TestWorker_ProcessFailureKind(t *testing.T) {
	store := queue.NewMemoryStore()

	id, err := store.Create(context.Background(), domain.NewProcessPayload(domain.ProcessSpec{
		Command:   "exit 5",
		Directory: t.TempDir(),
	}))
	if err != nil {
		t.Fatal(err)
	}

	w := New(Config{
		Store:             store,
		CloseOnEmptyQueue: true,
		PollInterval:      10 * time.Millisecond,
	})
	drain(t, w)

	got, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Result.OK {
		t.Fatal("expected error result")
	}
	if got.Result.Error.Kind != domain.ErrKindNonZeroExit {
		t.Errorf("expected kind %q, got %q", domain.ErrKindNonZeroExit, got.Result.Error.Kind)
	}
}

// Отмена контекста не бросает RUNNING item: результат записывается
// свежим контекстом, item доходит до FINISHED.
func TestWorker_ShutdownCompletesRunningItem(t *testing.T) {
	store := queue.NewMemoryStore()
	item := mustSubmit(t, store, "sleep", map[string]any{"seconds": 30})

	w := New(Config{
		Store:        store,
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// Даём циклу забрать item, затем обрываем контекст.
	waitForStatus(t, store, item.ID, domain.StatusRunning)
	cancel()

	select {
	case <-w.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	w.Stop()

	got, err := store.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusFinished {
		t.Fatalf("running item must be finished on shutdown, got %s", got.Status)
	}
	if got.Result.OK {
		t.Fatal("canceled sleep must produce an error result")
	}
}

func waitForStatus(t *testing.T, store queue.Store, id uuid.UUID, want domain.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := store.Get(context.Background(), id)
		if err == nil && got.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("item %s never reached status %s", id, want)
}
