package engine

import "fmt"

// Registry — реестр обработчиков по имени.
//
// Декларативные payload'ы ссылаются на обработчики строковыми
// именами; реестр превращает имена обратно в экземпляры. Вся
// регистрация происходит при старте процесса, до запуска worker'ов,
// поэтому реестр не синхронизируется.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register добавляет обработчик под его собственным именем.
// Повторная регистрация имени замещает предыдущий экземпляр.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Name()] = h
}

// Get возвращает обработчик по имени.
func (r *Registry) Get(name string) (Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown handler %q", name)
	}
	return h, nil
}

// Resolve превращает список имён в список обработчиков, сохраняя
// порядок: он определяет приоритет при детекции.
func (r *Registry) Resolve(names []string) ([]Handler, error) {
	handlers := make([]Handler, 0, len(names))
	for _, name := range names {
		h, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}
