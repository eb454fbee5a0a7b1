package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Func — зарегистрированная единица работы.
//
// Аргументы приходят сырым JSON из payload: функция сама знает их
// форму и декодирует. Возвращённое значение сериализуется в Result.
type Func func(ctx context.Context, args json.RawMessage) (any, error)

// Registry — реестр функций по имени.
//
// Payload ссылается на функции строковыми именами, поэтому каждый
// worker-процесс обязан зарегистрировать одинаковый набор функций.
// Регистрация происходит при старте, до запуска цикла, и реестр
// не синхронизируется.
type Registry struct {
	fns map[string]Func
}

// NewRegistry создаёт реестр со встроенными функциями echo, sleep и http.
func NewRegistry() *Registry {
	r := &Registry{fns: make(map[string]Func)}
	r.Register("echo", echoFunc)
	r.Register("sleep", sleepFunc)
	r.Register("http", httpFunc)
	return r
}

// Register добавляет функцию под именем. Повторная регистрация
// имени замещает предыдущую функцию.
func (r *Registry) Register(name string, fn Func) {
	r.fns[name] = fn
}

// Get возвращает функцию по имени.
func (r *Registry) Get(name string) (Func, error) {
	fn, ok := r.fns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return fn, nil
}

// echoFunc возвращает свои аргументы без изменений. Используется
// в тестах очереди и для проверки жизнеспособности пайплайна.
func echoFunc(_ context.Context, args json.RawMessage) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return nil, fmt.Errorf("decode echo args: %w", err)
	}
	return v, nil
}

// sleepArgs — аргументы встроенной функции sleep.
type sleepArgs struct {
	Seconds float64 `json:"seconds"`
}

// sleepFunc спит заданное число секунд, уважая отмену контекста.
func sleepFunc(ctx context.Context, args json.RawMessage) (any, error) {
	var a sleepArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("decode sleep args: %w", err)
		}
	}
	if a.Seconds <= 0 {
		return map[string]any{"slept_seconds": 0.0}, nil
	}

	select {
	case <-time.After(time.Duration(a.Seconds * float64(time.Second))):
		return map[string]any{"slept_seconds": a.Seconds}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
