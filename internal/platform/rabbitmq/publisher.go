// Package rabbitmq publishes outbox entries to a RabbitMQ topic exchange.
// The entry's topic becomes the routing key.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"shebuilds/internal/platform/kafka/producer"
)

// ErrClosed is returned by Produce after Close.
var ErrClosed = errors.New("rabbitmq publisher is closed")

// ErrNacked is returned when the broker refuses a confirmed publish.
var ErrNacked = errors.New("rabbitmq broker nacked message")

type Config struct {
	URL      string
	Exchange string
}

// channel is the slice of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	Close() error
}

// Publisher sends persistent JSON messages in confirm mode.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	logger   *slog.Logger
	now      func() time.Time
	mu       sync.RWMutex
	closed   bool
}

func New(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq url not configured")
	}
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("rabbitmq exchange not configured")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	p := newWithChannel(ch, cfg.Exchange, logger)
	p.conn = conn
	return p, nil
}

func newWithChannel(ch channel, exchange string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{ch: ch, exchange: exchange, logger: logger, now: time.Now}
}

// Produce blocks until the broker confirms the message.
func (p *Publisher) Produce(ctx context.Context, msg *producer.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	dc, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, msg.Topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    string(msg.Key),
		Type:         msg.Headers["event_type"],
		Timestamp:    p.now(),
		Headers:      headers,
		Body:         msg.Value,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	// nil when the channel is not in confirm mode
	if dc == nil {
		return nil
	}
	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await publish confirm: %w", err)
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

// Healthy reports whether the connection is still open.
func (p *Publisher) Healthy(context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if p.conn != nil && p.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		p.logger.Warn("rabbitmq channel close failed", "error", err)
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
