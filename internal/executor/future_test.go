package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/queue"
)

func newExecutor(t *testing.T) (*Executor, queue.Store) {
	t.Helper()
	store := queue.NewMemoryStore()
	return New(Config{Store: store}), store
}

func TestExecutor_SubmitCreatesPending(t *testing.T) {
	exec, store := newExecutor(t)

	fut, err := exec.Submit(context.Background(), "echo", map[string]any{"msg": "hi"})
	if err != nil {
		t.Fatal(err)
	}

	item, err := store.Get(context.Background(), fut.ID())
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != domain.StatusPending {
		t.Errorf("expected PENDING, got %s", item.Status)
	}
	if item.Payload.Function.Name != "echo" {
		t.Errorf("expected function echo, got %q", item.Payload.Function.Name)
	}
}

func TestExecutor_SubmitRejectsBadArgs(t *testing.T) {
	exec, _ := newExecutor(t)

	// Канал не сериализуется в JSON: ошибка видна при submit.
	if _, err := exec.Submit(context.Background(), "echo", make(chan int)); err == nil {
		t.Fatal("expected marshal error at submit time")
	}
}

func TestExecutor_SubmitProcessValidates(t *testing.T) {
	exec, _ := newExecutor(t)

	_, err := exec.SubmitProcess(context.Background(), domain.ProcessSpec{Command: "echo hi"})
	if err == nil {
		t.Fatal("expected validation error for missing directory")
	}
}

func TestFuture_ResultReturnsValue(t *testing.T) {
	exec, store := newExecutor(t)

	fut, err := exec.Submit(context.Background(), "echo", "payload")
	if err != nil {
		t.Fatal(err)
	}

	// Изображаем worker: забрать и завершить.
	item, err := store.ClaimOne(context.Background(), "w1")
	if err != nil || item == nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := store.Complete(context.Background(), item.ID, domain.NewValueResult("payload")); err != nil {
		t.Fatal(err)
	}

	value, err := fut.Result(context.Background(), 5*time.Second, 5*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		t.Fatal(err)
	}
	if s != "payload" {
		t.Errorf("expected payload, got %q", s)
	}
}

// Закон захвата, сторона чтения: ошибка работы поднимается у Result
// как *domain.JobError с сохранённым видом отказа.
func TestFuture_ResultRaisesJobError(t *testing.T) {
	exec, store := newExecutor(t)

	fut, err := exec.Submit(context.Background(), "echo", nil)
	if err != nil {
		t.Fatal(err)
	}

	item, err := store.ClaimOne(context.Background(), "w1")
	if err != nil || item == nil {
		t.Fatalf("claim failed: %v", err)
	}
	failure := domain.NewErrorResult(domain.ErrKindNonZeroExit, "exit code 3", []domain.Correction{
		{Handler: "oom-fix", Description: "reduced memory"},
	})
	if err := store.Complete(context.Background(), item.ID, failure); err != nil {
		t.Fatal(err)
	}

	_, err = fut.Result(context.Background(), 5*time.Second, 5*time.Millisecond)
	if err == nil {
		t.Fatal("expected error")
	}

	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected *domain.JobError, got %T: %v", err, err)
	}
	if jobErr.Kind != domain.ErrKindNonZeroExit {
		t.Errorf("expected kind %q, got %q", domain.ErrKindNonZeroExit, jobErr.Kind)
	}
	if len(jobErr.Corrections) != 1 {
		t.Errorf("corrections must survive the round-trip, got %v", jobErr.Corrections)
	}
}

func TestFuture_CancelWindow(t *testing.T) {
	exec, store := newExecutor(t)

	fut, err := exec.Submit(context.Background(), "echo", nil)
	if err != nil {
		t.Fatal(err)
	}

	// PENDING item отменяется.
	ok, err := fut.Cancel(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("pending item must be cancellable")
	}

	cancelled, err := fut.Cancelled(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !cancelled {
		t.Error("expected cancelled status")
	}

	// Отменённый item не достаётся worker'ам.
	item, err := store.ClaimOne(context.Background(), "w1")
	if err != nil {
		t.Fatal(err)
	}
	if item != nil {
		t.Errorf("cancelled item must not be claimable, got %s", item.ID)
	}

	// Result на отменённом — ErrCancelled.
	if _, err := fut.Result(context.Background(), time.Second, 5*time.Millisecond); !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestFuture_CancelAfterClaimFails(t *testing.T) {
	exec, store := newExecutor(t)

	fut, err := exec.Submit(context.Background(), "echo", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.ClaimOne(context.Background(), "w1"); err != nil {
		t.Fatal(err)
	}

	ok, err := fut.Cancel(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("claimed item must not be cancellable")
	}

	running, err := fut.Running(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !running {
		t.Error("expected running status after claim")
	}
}

func TestFuture_ResultTimeout(t *testing.T) {
	exec, _ := newExecutor(t)

	fut, err := exec.Submit(context.Background(), "echo", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Никто не забирает item: ожидание упирается в timeout.
	_, err = fut.Result(context.Background(), 50*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}

	// Item никуда не делся.
	done, err := fut.Done(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("timeout must not touch the item itself")
	}
}

func TestFuture_ResultRespectsContext(t *testing.T) {
	exec, _ := newExecutor(t)

	fut, err := exec.Submit(context.Background(), "echo", nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = fut.Result(ctx, 0, 5*time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
