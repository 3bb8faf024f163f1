package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ReminderMessage is the JSON body published for an external chat transport.
type ReminderMessage struct {
	RecipientID string          `json:"recipient_id"`
	Reminder    models.Reminder `json:"reminder"`
	Actions     []string        `json:"actions"`
	SentAt      time.Time       `json:"sent_at"`
}

// AMQPSender publishes reminders to a durable queue.
type AMQPSender struct {
	conn    *amqp.Connection
	channel publisher
	queue   string
	now     func() time.Time
}

// NewAMQPSender connects to amqpURL and declares the queue. An empty queue
// name selects constants.DefaultAMQPQueue.
func NewAMQPSender(amqpURL, queue string) (*AMQPSender, error) {
	if queue == "" {
		queue = constants.DefaultAMQPQueue
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPSender{conn: conn, channel: ch, queue: queue, now: time.Now}, nil
}

func (s *AMQPSender) Send(ctx context.Context, recipientID string, r models.Reminder) error {
	msg := ReminderMessage{
		RecipientID: recipientID,
		Reminder:    r,
		Actions:     r.ActionPayloads(),
		SentAt:      s.now().UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}

	return s.channel.PublishWithContext(ctx,
		"",      // default exchange
		s.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    msg.SentAt,
		},
	)
}

func (s *AMQPSender) Close() error {
	if err := s.channel.Close(); err != nil {
		logger.Warn("Failed to close AMQP channel", "error", err)
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
