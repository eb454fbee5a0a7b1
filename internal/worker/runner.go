package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/engine"
)

// runItem выполняет payload и всегда возвращает конверт результата.
//
// Закон захвата: любой отказ работы, включая панику, сериализуется
// в Result и не покидает эту функцию ошибкой. Worker падать из-за
// работы не должен.
func (w *Worker) runItem(ctx context.Context, item *domain.WorkItem) (res domain.Result) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("work item panicked", "item_id", item.ID, "panic", r)
			res = domain.NewErrorResult(domain.ErrKindPanic, fmt.Sprintf("%v", r), nil)
		}
	}()

	if err := item.Payload.Validate(); err != nil {
		return domain.NewErrorResult(domain.ErrKindError, err.Error(), nil)
	}

	switch item.Payload.Kind {
	case domain.PayloadKindFunction:
		return w.runFunction(ctx, item.Payload.Function)
	case domain.PayloadKindProcess:
		return w.runProcess(ctx, item.Payload.Process)
	default:
		return domain.NewErrorResult(domain.ErrKindError,
			fmt.Sprintf("unknown payload kind %q", item.Payload.Kind), nil)
	}
}

// runFunction вызывает зарегистрированную функцию.
func (w *Worker) runFunction(ctx context.Context, call *domain.FunctionCall) domain.Result {
	fn, err := w.functions.Get(call.Name)
	if err != nil {
		return domain.NewErrorResult(domain.ErrKindError, err.Error(), nil)
	}

	v, err := fn(ctx, call.Args)
	if err != nil {
		return domain.NewErrorResult(domain.ErrKindError, err.Error(), nil)
	}
	return domain.NewValueResult(v)
}

// runProcess собирает supervised-процесс из декларативной спецификации
// и выполняет его. Имена обработчиков разрешаются через реестр.
func (w *Worker) runProcess(ctx context.Context, spec *domain.ProcessSpec) domain.Result {
	handlers, err := w.handlers.Resolve(spec.Handlers)
	if err != nil {
		return domain.NewErrorResult(domain.ErrKindError, err.Error(), nil)
	}

	proc := engine.New(engine.Config{
		Command:        spec.Command,
		Directory:      spec.Directory,
		RequiredFiles:  spec.RequiredFiles,
		Handlers:       handlers,
		MonitorFreq:    spec.MonitorFreq,
		PollInterval:   time.Duration(spec.PollIntervalMS) * time.Millisecond,
		MaxCorrections: spec.MaxCorrections,
		OKExitCodes:    spec.OKExitCodes,
		Logger:         w.logger,
	})

	out, err := proc.Run(ctx)
	if err != nil {
		// Коррекции, применённые до отказа, сохраняются в ошибке:
		// оператору важно видеть, что движок успел попробовать.
		return domain.NewErrorResult(errKindFor(err), err.Error(), out.Corrections)
	}

	return domain.NewValueResult(domain.ProcessOutcome{
		ExitCode:    out.ExitCode,
		Directory:   out.Directory,
		Corrections: out.Corrections,
	})
}

// errKindFor переводит сентинели движка в сериализуемые виды ошибок.
func errKindFor(err error) string {
	switch {
	case errors.Is(err, engine.ErrMissingFiles):
		return domain.ErrKindMissingFiles
	case errors.Is(err, engine.ErrCommandNotFound):
		return domain.ErrKindCommandNotFound
	case errors.Is(err, engine.ErrNonZeroExit):
		return domain.ErrKindNonZeroExit
	case errors.Is(err, engine.ErrMaxCorrections):
		return domain.ErrKindMaxCorrections
	case errors.Is(err, engine.ErrHandlerFailure):
		return domain.ErrKindHandler
	default:
		return domain.ErrKindError
	}
}
