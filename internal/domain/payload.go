package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Виды payload.
const (
	// PayloadKindFunction — вызов зарегистрированной функции с JSON-аргументами.
	PayloadKindFunction = "function"

	// PayloadKindProcess — декларативное описание supervised-процесса.
	PayloadKindProcess = "process"
)

// Payload — сериализуемое описание работы.
//
// Работа выражается данными, а не замыканиями: либо ссылка на
// зарегистрированную по имени функцию плюс JSON-аргументы, либо
// декларативная спецификация внешнего процесса. Ровно одно из полей
// Function/Process должно быть заполнено, в соответствии с Kind.
type Payload struct {
	// Kind — вид работы: "function" или "process".
	Kind string `json:"kind"`

	// Function — вызов зарегистрированной функции (Kind == "function").
	Function *FunctionCall `json:"function,omitempty"`

	// Process — спецификация supervised-процесса (Kind == "process").
	Process *ProcessSpec `json:"process,omitempty"`
}

// FunctionCall — ссылка на именованную функцию и её аргументы.
type FunctionCall struct {
	// Name — имя функции в реестре worker'а.
	Name string `json:"name"`

	// Args — JSON-аргументы. Конкретная функция сама знает их форму.
	Args json.RawMessage `json:"args,omitempty"`
}

// ProcessSpec — декларативное описание одного supervised-процесса.
//
// Всё, что нужно для запуска: команда, рабочая директория, список
// обязательных входных файлов и обработчики ошибок по именам из реестра.
type ProcessSpec struct {
	// Command — shell-команда для запуска.
	Command string `json:"command"`

	// Directory — рабочая директория процесса.
	// Директория принадлежит ровно одному запуску на всё время его жизни.
	Directory string `json:"directory"`

	// RequiredFiles — файлы, которые обязаны существовать в Directory
	// до запуска. Отсутствие любого из них — фатальная ошибка.
	RequiredFiles []string `json:"required_files,omitempty"`

	// Handlers — имена обработчиков из реестра, в порядке приоритета.
	// Первый обнаруживший сигнатуру выигрывает проход.
	Handlers []string `json:"handlers,omitempty"`

	// MonitorFreq — каждый N-й опрос запускает Detect у мониторов.
	// Минимум 1. Ноль означает "использовать значение по умолчанию".
	MonitorFreq int `json:"monitor_freq,omitempty"`

	// PollIntervalMS — период опроса состояния процесса в миллисекундах.
	// Ноль означает "использовать значение по умолчанию".
	PollIntervalMS int `json:"poll_interval_ms,omitempty"`

	// MaxCorrections — потолок количества коррекций за запуск.
	// Превышение — фатальная ошибка (защита от бесконечных retry).
	// Ноль означает "использовать значение по умолчанию".
	MaxCorrections int `json:"max_corrections,omitempty"`

	// OKExitCodes — дополнительные коды выхода, считающиеся успехом.
	// Код 0 успешен всегда.
	OKExitCodes []int `json:"ok_exit_codes,omitempty"`
}

// NewFunctionPayload собирает payload для вызова зарегистрированной функции.
// args маршалится в JSON сразу, чтобы ошибка сериализации была видна
// при submit, а не при выполнении.
func NewFunctionPayload(name string, args any) (Payload, error) {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return Payload{}, fmt.Errorf("marshal args: %w", err)
		}
		raw = b
	}
	return Payload{
		Kind:     PayloadKindFunction,
		Function: &FunctionCall{Name: name, Args: raw},
	}, nil
}

// NewProcessPayload собирает payload для supervised-процесса.
func NewProcessPayload(spec ProcessSpec) Payload {
	return Payload{
		Kind:    PayloadKindProcess,
		Process: &spec,
	}
}

// Validate проверяет внутреннюю согласованность payload.
func (p Payload) Validate() error {
	switch p.Kind {
	case PayloadKindFunction:
		if p.Function == nil {
			return errors.New("function payload without function body")
		}
		if p.Function.Name == "" {
			return errors.New("function payload without name")
		}
	case PayloadKindProcess:
		if p.Process == nil {
			return errors.New("process payload without process spec")
		}
		if p.Process.Command == "" {
			return errors.New("process payload without command")
		}
		if p.Process.Directory == "" {
			return errors.New("process payload without directory")
		}
		if p.Process.MonitorFreq < 0 || p.Process.PollIntervalMS < 0 || p.Process.MaxCorrections < 0 {
			return errors.New("process payload with negative tuning values")
		}
	default:
		return fmt.Errorf("unknown payload kind %q", p.Kind)
	}
	return nil
}
