// Package mq — событийная шина поверх RabbitMQ.
//
// Шина вторична по отношению к Postgres: состояние работы живёт
// в базе, сообщения лишь сокращают задержку реакции. Любой компонент
// обязан переживать недоступность брокера, деградируя до поллинга.
//
// Структура:
//   - connection.go — соединение с автоматическим reconnect
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий
//   - consumer.go   — потребление с ручным ack
//
// События:
//   - work.submitted — в очереди появился элемент (будит worker'ов)
//   - work.finished  — элемент завершён (для watch и ожидающих)
package mq
