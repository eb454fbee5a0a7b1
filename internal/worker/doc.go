// Package worker — исполнитель элементов очереди работы.
//
// # Обзор
//
// Worker крутит один цикл: атомарно забрать PENDING item из хранилища,
// выполнить payload, записать результат, повторить. Параллелизм
// достигается количеством worker-процессов, а не потоками внутри
// одного: хранилище гарантирует, что item достанется не более чем
// одному экземпляру.
//
// Payload диспетчеризуется по виду:
//   - "function" — вызов функции, зарегистрированной в Registry
//   - "process"  — supervised-процесс через internal/engine
//
// # Закон захвата
//
// Любой отказ работы — ошибка функции, фатальный исход процесса,
// паника — сериализуется в domain.Result и записывается как результат
// item'а. Worker из-за работы не падает никогда; ошибка повторно
// поднимается только у того, кто инспектирует Future.
//
// # Остановка
//
// Цикл завершается сам по любому из условий: выполнено MaxItems,
// истёк Timeout (текущий item дорабатывает), очередь опустела при
// CloseOnEmptyQueue, отменён контекст. Канал Done сообщает об этом
// вызывающему.
//
// События work.submitted из RabbitMQ сокращают задержку до claim,
// но обязательным брокер не является: без него цикл живёт на поллинге.
package worker
