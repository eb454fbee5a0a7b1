package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jacksund/warden/internal/domain"
)

// fakeScheduleStore — хранилище расписаний в памяти для тестов Tick.
type fakeScheduleStore struct {
	due     []domain.Schedule
	updated []domain.Schedule
}

func (f *fakeScheduleStore) ListDue(_ context.Context, _ time.Time, _ int) ([]domain.Schedule, error) {
	return f.due, nil
}

func (f *fakeScheduleStore) Update(_ context.Context, s *domain.Schedule) error {
	f.updated = append(f.updated, *s)
	return nil
}

// fakeItemCreator имитирует идемпотентное создание items.
type fakeItemCreator struct {
	existing map[string]uuid.UUID
	created  []string
	failKeys map[string]error
}

func (f *fakeItemCreator) CreateWithKey(_ context.Context, _ domain.Payload, key string) (uuid.UUID, bool, error) {
	if err, ok := f.failKeys[key]; ok {
		return uuid.Nil, false, err
	}
	if id, ok := f.existing[key]; ok {
		return id, false, nil
	}
	if f.existing == nil {
		f.existing = make(map[string]uuid.UUID)
	}
	id := uuid.New()
	f.existing[key] = id
	f.created = append(f.created, key)
	return id, true, nil
}

func dueSchedule(name string, due time.Time) domain.Schedule {
	payload, _ := domain.NewFunctionPayload("echo", nil)
	return domain.Schedule{
		ID:          uuid.New(),
		Name:        name,
		Payload:     payload,
		IntervalSec: 60,
		Timezone:    "UTC",
		Enabled:     true,
		NextDueAt:   &due,
	}
}

func TestScheduler_Tick_SubmitsDueSchedule(t *testing.T) {
	due := time.Now().Add(-time.Minute).Truncate(time.Second)
	sched := dueSchedule("nightly", due)

	schedules := &fakeScheduleStore{due: []domain.Schedule{sched}}
	items := &fakeItemCreator{}

	s := New(Config{Schedules: schedules, Items: items})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(items.created) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items.created))
	}
	wantKey := fmt.Sprintf("%s_%d", sched.ID, due.Unix())
	if items.created[0] != wantKey {
		t.Errorf("expected idempotency key %q, got %q", wantKey, items.created[0])
	}

	if len(schedules.updated) != 1 {
		t.Fatalf("schedule must be updated, got %d updates", len(schedules.updated))
	}
	upd := schedules.updated[0]
	if upd.NextDueAt == nil || !upd.NextDueAt.After(due) {
		t.Errorf("next_due_at must advance past %v, got %v", due, upd.NextDueAt)
	}
	if upd.LastItemID == nil {
		t.Error("last_item_id must be recorded")
	}
	if upd.LastSubmitAt == nil {
		t.Error("last_submit_at must be recorded")
	}
}

// Повторный тик с тем же due-временем не создаёт второй item,
// но расписание всё равно сдвигается вперёд.
func TestScheduler_Tick_Idempotent(t *testing.T) {
	due := time.Now().Add(-time.Minute)
	sched := dueSchedule("hourly", due)

	key := fmt.Sprintf("%s_%d", sched.ID, due.Unix())
	items := &fakeItemCreator{existing: map[string]uuid.UUID{key: uuid.New()}}
	schedules := &fakeScheduleStore{due: []domain.Schedule{sched}}

	s := New(Config{Schedules: schedules, Items: items})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(items.created) != 0 {
		t.Errorf("duplicate submission must be suppressed, created %v", items.created)
	}
	if len(schedules.updated) != 1 {
		t.Errorf("schedule must still advance, got %d updates", len(schedules.updated))
	}
}

// Отказ одного расписания не блокирует остальные.
func TestScheduler_Tick_FailureIsolation(t *testing.T) {
	due := time.Now().Add(-time.Minute)
	broken := dueSchedule("broken", due)
	healthy := dueSchedule("healthy", due)

	brokenKey := fmt.Sprintf("%s_%d", broken.ID, due.Unix())
	items := &fakeItemCreator{
		failKeys: map[string]error{brokenKey: errors.New("storage unavailable")},
	}
	schedules := &fakeScheduleStore{due: []domain.Schedule{broken, healthy}}

	s := New(Config{Schedules: schedules, Items: items})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(items.created) != 1 {
		t.Fatalf("healthy schedule must be processed, created %v", items.created)
	}
	if len(schedules.updated) != 1 || schedules.updated[0].Name != "healthy" {
		t.Errorf("only healthy schedule should be updated, got %v", schedules.updated)
	}
}

func TestScheduler_Tick_NoDueSchedules(t *testing.T) {
	schedules := &fakeScheduleStore{}
	items := &fakeItemCreator{}

	s := New(Config{Schedules: schedules, Items: items})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(items.created) != 0 || len(schedules.updated) != 0 {
		t.Error("empty tick must not touch anything")
	}
}
