// Package executor — submit-сторона очереди работы.
//
// # Обзор
//
// Executor превращает вызов или спецификацию процесса в PENDING item
// хранилища и возвращает Future. Future — читающее окно: по нему
// опрашивают статус, ждут результат и кооперативно отменяют ещё
// не начатую работу.
//
//	exec := executor.New(executor.Config{Store: store})
//	fut, err := exec.Submit(ctx, "echo", map[string]any{"msg": "hi"})
//	...
//	value, err := fut.Result(ctx, time.Minute, 0)
//
// Ошибка работы возвращается из Result как *domain.JobError с видом
// отказа в Kind. Сам Executor и worker'ы от таких ошибок не падают:
// поднимаются они только здесь, у заинтересованной стороны.
//
// Ожидание — синхронный поллинг хранилища. Колбэков по завершению
// нет: кто хочет знать результат, тот его ждёт.
package executor
