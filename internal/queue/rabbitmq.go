package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/resilience"
)

const (
	publishTimeout = 5 * time.Second
	requeueDelay   = time.Second
)

// Submitter is the local side the broker feeds
type Submitter interface {
	Submit(job Job) error
}

// AMQPBroker carries analysis jobs over a durable RabbitMQ queue
type AMQPBroker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  zerolog.Logger
}

// NewAMQPBroker dials RabbitMQ and declares the job queue
func NewAMQPBroker(ctx context.Context, url, queueName string, reconnect *resilience.ReconnectConfig, logger zerolog.Logger) (*AMQPBroker, error) {
	var conn *amqp.Connection
	err := resilience.Reconnect(ctx, "rabbitmq", func() error {
		var err error
		conn, err = amqp.Dial(url)
		return err
	}, reconnect)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	// one unacked delivery at a time keeps the broker as the buffer
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	logger = logger.With().Str("component", "amqp_broker").Str("queue", q.Name).Logger()
	logger.Info().Msg("Connected to RabbitMQ and declared queue")
	return &AMQPBroker{conn: conn, channel: ch, queue: q, logger: logger}, nil
}

// Enqueue publishes job as a persistent JSON message
func (b *AMQPBroker) Enqueue(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = b.channel.PublishWithContext(
		ctx,
		"",           // exchange
		b.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: job.CorrelationID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Consume feeds deliveries into s until ctx is done or the channel closes
func (b *AMQPBroker) Consume(ctx context.Context, s Submitter) error {
	msgs, err := b.channel.Consume(
		b.queue.Name,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			b.handle(ctx, s, d)
		}
	}
}

func (b *AMQPBroker) handle(ctx context.Context, s Submitter, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil || job.RecordingID == "" {
		b.logger.Warn().Err(err).Msg("Dropping invalid job message")
		d.Nack(false, false)
		return
	}

	switch err := s.Submit(job); {
	case err == nil, errors.Is(err, ErrAlreadyQueued):
		d.Ack(false)
	case errors.Is(err, ErrQueueFull):
		select {
		case <-ctx.Done():
		case <-time.After(requeueDelay):
		}
		d.Nack(false, true)
	default:
		b.logger.Warn().Err(err).Str("recording_id", job.RecordingID).Msg("Requeueing job")
		d.Nack(false, true)
	}
}

// Healthy reports whether the connection is still open
func (b *AMQPBroker) Healthy(_ context.Context) error {
	if b.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

func (b *AMQPBroker) Close() error {
	if err := b.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}
