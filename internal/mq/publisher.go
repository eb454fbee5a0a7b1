package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeWorkSubmitted MessageType = "work.submitted"
	MessageTypeWorkFinished  MessageType = "work.finished"
)

// Message — конверт сообщения. Payload зависит от Type.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// WorkSubmittedPayload — подсказка worker'ам: в очереди появился
// элемент. Само состояние живёт в Postgres, поэтому потеря
// сообщения не теряет работу.
type WorkSubmittedPayload struct {
	ItemID uuid.UUID `json:"item_id"`
}

// WorkFinishedPayload — событие завершения элемента.
type WorkFinishedPayload struct {
	ItemID uuid.UUID `json:"item_id"`
	OK     bool      `json:"ok"`

	// Kind — категория ошибки при OK=false (см. domain.ErrKind*).
	Kind string `json:"kind,omitempty"`
}

// Publisher публикует события жизненного цикла работы.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher поверх существующего соединения.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish сериализует сообщение и публикует его в exchange.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishWorkSubmitted объявляет о новом элементе очереди.
// Потребитель: worker.
func (p *Publisher) PublishWorkSubmitted(ctx context.Context, itemID uuid.UUID) error {
	return p.Publish(ctx, ExchangeWork, RoutingKeySubmitted, &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeWorkSubmitted,
		Payload:   WorkSubmittedPayload{ItemID: itemID},
		Timestamp: time.Now(),
	})
}

// PublishWorkFinished объявляет о завершении элемента.
// Потребители: cli watch и ожидающие результата.
func (p *Publisher) PublishWorkFinished(ctx context.Context, payload WorkFinishedPayload) error {
	return p.Publish(ctx, ExchangeWork, RoutingKeyFinished, &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeWorkFinished,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}
