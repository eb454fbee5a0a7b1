package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// Обменники.
const (
	ExchangeWork Exchange = "warden.work"
	ExchangeDLQ  Exchange = "warden.dlq"
)

// Очереди.
const (
	QueueWorkSubmitted Queue = "work.submitted"
	QueueWorkFinished  Queue = "work.finished"
	QueueDLQWork       Queue = "dlq.work"
)

// Ключи маршрутизации.
const (
	RoutingKeySubmitted RoutingKey = "submitted"
	RoutingKeyFinished  RoutingKey = "finished"
	RoutingKeyDLQWork   RoutingKey = "work"
)

// SetupTopology объявляет обменники, очереди и привязки. Операции
// декларативны и идемпотентны: каждый процесс зовёт SetupTopology
// при старте, не координируясь с остальными.
func SetupTopology(conn *Connection) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeWork, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name),
			"direct",
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	// Необработанные подсказки о задачах уходят в DLQ для разбора.
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQWork),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueWorkSubmitted, dlqArgs},
		// Событие завершения чисто информационное, DLQ не нужна.
		{QueueWorkFinished, nil},
		{QueueDLQWork, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name),
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			q.args,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueWorkSubmitted, RoutingKeySubmitted, ExchangeWork},
		{QueueWorkFinished, RoutingKeyFinished, ExchangeWork},
		{QueueDLQWork, RoutingKeyDLQWork, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo возвращает описание топологии для лога старта.
func TopologyInfo() string {
	return `
  Warden RabbitMQ topology:

    warden.work (direct)
    ├── work.submitted [routing: submitted]
    │       Consumer: worker (wake-up hint)
    │       DLQ: dlq.work
    └── work.finished [routing: finished]
            Consumer: cli watch / futures

    warden.dlq (direct)
    └── dlq.work [routing: work]
            Manual inspection
  `
}
