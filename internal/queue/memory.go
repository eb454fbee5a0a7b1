package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jacksund/warden/internal/domain"
)

// Проверка соответствия контракту на этапе компиляции.
var _ Store = (*MemoryStore)(nil)

// MemoryStore — хранилище WorkItems в памяти процесса.
//
// Используется в тестах и во встраиваемом режиме, когда producer и
// worker живут в одном процессе. Атомарность захвата обеспечивается
// мьютексом: выбор кандидата и перевод в RUNNING происходят под одной
// блокировкой.
//
// Наружу всегда отдаются копии items. Payload считается неизменяемым
// после создания и копируется поверхностно.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*domain.WorkItem
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[uuid.UUID]*domain.WorkItem),
	}
}

// Create вставляет новый item в статусе PENDING.
func (s *MemoryStore) Create(_ context.Context, payload domain.Payload) (uuid.UUID, error) {
	item := domain.NewWorkItem(payload)

	s.mu.Lock()
	s.items[item.ID] = item
	s.mu.Unlock()

	return item.ID, nil
}

// ClaimOne атомарно захватывает самый старый PENDING item.
// Порядок выбора — деталь реализации, контракт его не обещает.
func (s *MemoryStore) ClaimOne(_ context.Context, workerName string) (*domain.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *domain.WorkItem
	for _, item := range s.items {
		if item.Status != domain.StatusPending {
			continue
		}
		if oldest == nil || item.CreatedAt.Before(oldest.CreatedAt) {
			oldest = item
		}
	}
	if oldest == nil {
		return nil, nil
	}

	oldest.MarkRunning(workerName)
	cp := *oldest
	return &cp, nil
}

// Complete переводит RUNNING item в FINISHED.
func (s *MemoryStore) Complete(_ context.Context, id uuid.UUID, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	if item.Status != domain.StatusRunning {
		return ErrNotRunning
	}

	item.MarkFinished(result)
	return nil
}

// Cancel переводит PENDING item в CANCELED.
func (s *MemoryStore) Cancel(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return false, nil
	}
	if item.Status != domain.StatusPending {
		return false, nil
	}

	item.MarkCanceled()
	return true, nil
}

// Get возвращает копию item'а по ID.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*domain.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *item
	return &cp, nil
}

// CountPending возвращает количество PENDING items.
func (s *MemoryStore) CountPending(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, item := range s.items {
		if item.Status == domain.StatusPending {
			n++
		}
	}
	return n, nil
}

// CountByStatus возвращает количество items в каждом статусе.
func (s *MemoryStore) CountByStatus(_ context.Context) (map[domain.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.Status]int)
	for _, item := range s.items {
		counts[item.Status]++
	}
	return counts, nil
}

// ListRecent возвращает items, обновлённые не раньше since.
func (s *MemoryStore) ListRecent(_ context.Context, since time.Time, limit int) ([]domain.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recent []domain.WorkItem
	for _, item := range s.items {
		if item.UpdatedAt.Before(since) {
			continue
		}
		recent = append(recent, *item)
	}

	// От новых к старым.
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].UpdatedAt.After(recent[j].UpdatedAt)
	})

	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

// DeleteFinished удаляет items в терминальных статусах.
func (s *MemoryStore) DeleteFinished(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, item := range s.items {
		if item.Status.IsTerminal() {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

// DeleteAll удаляет все items.
func (s *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.items))
	s.items = make(map[uuid.UUID]*domain.WorkItem)
	return n, nil
}
