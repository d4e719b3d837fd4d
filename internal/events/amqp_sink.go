package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// amqpChannel is the subset of *amqp.Channel the sink uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// DefaultPublishTimeout bounds a publish when the caller does not configure one.
const DefaultPublishTimeout = time.Second

// AMQPSink forwards lifecycle events to a durable topic exchange using the event type as the
// routing key. Publishing is serialized because an AMQP channel is not safe for concurrent use.
// Events are published after commit on the request goroutine, so waiting for the channel and
// the publish itself share one timeout.
type AMQPSink struct {
	sem      chan struct{}
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	timeout  time.Duration
	logger   *zap.Logger
}

// DialAMQPSink connects to the broker and declares the exchange.
func DialAMQPSink(url, exchange string, timeout time.Duration, logger *zap.Logger) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	sink := newAMQPSinkWithChannel(ch, exchange, timeout, logger)
	sink.conn = conn
	logger.Info("amqp event sink ready", zap.String("exchange", exchange), zap.Duration("publish_timeout", sink.timeout))
	return sink, nil
}

func newAMQPSinkWithChannel(ch amqpChannel, exchange string, timeout time.Duration, logger *zap.Logger) *AMQPSink {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &AMQPSink{
		sem:      make(chan struct{}, 1),
		channel:  ch,
		exchange: exchange,
		timeout:  timeout,
		logger:   logger,
	}
}

// Handle publishes one event. It satisfies EventHandler.
func (s *AMQPSink) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    event.Timestamp.UTC(),
		Body:         body,
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-publishCtx.Done():
		s.logger.Warn("amqp publish skipped, channel busy", zap.String("event_type", string(event.Type)))
		return publishCtx.Err()
	}
	if err := s.channel.PublishWithContext(publishCtx, s.exchange, string(event.Type), false, false, pub); err != nil {
		s.logger.Warn("amqp publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return err
	}
	return nil
}

// Close releases the channel and connection.
func (s *AMQPSink) Close() {
	if s == nil {
		return
	}
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
