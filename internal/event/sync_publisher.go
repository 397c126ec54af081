package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SyncRunPublisher publishes sync run events to RabbitMQ.
type SyncRunPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

func NewSyncRunPublisher(conn *RabbitMQConnection) *SyncRunPublisher {
	return &SyncRunPublisher{
		conn:            conn,
		lastPublishTime: time.Now(),
	}
}

// PublishRunEvent pushes one run event to the sync run queue.
func (p *SyncRunPublisher) PublishRunEvent(ctx context.Context, evt SyncRunEvent) error {
	_, err := p.conn.Channel.QueueDeclare(
		SyncRunQueue, // queue name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(evt)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",           // exchange
		SyncRunQueue, // routing key (queue name)
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	p.messagesPublished++
	p.lastPublishTime = time.Now()

	slog.Info("Run event published", "queue", SyncRunQueue, "event_type", evt.Type, "run_id", evt.RunID)
	return nil
}
