package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("events: publisher closed")

// AMQPConfig describes the broker connection.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// DefaultExchange is the topic exchange reservation events are sent to.
const DefaultExchange = "labinventory.reservations"

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// brokerSession is one connection and the channel opened on it.
type brokerSession struct {
	channel amqpChannel
	conn    io.Closer
}

func (s brokerSession) usable() bool {
	return s.channel != nil && !s.channel.IsClosed()
}

func (s brokerSession) close() error {
	var errs []error
	if s.channel != nil {
		if err := s.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type connectFunc func() (brokerSession, error)

// AMQPPublisher sends events to a durable topic exchange, routed by event type.
// When the broker closes the channel or connection, the next Publish dials again.
type AMQPPublisher struct {
	mu       sync.Mutex
	session  brokerSession
	connect  connectFunc
	exchange string
	logger   *slog.Logger
	closed   bool
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(cfg AMQPConfig, logger *slog.Logger) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("events: amqp url is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	return newAMQPPublisher(cfg.Exchange, dialSession(cfg.URL, cfg.Exchange), logger)
}

func newAMQPPublisher(exchange string, connect connectFunc, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	session, err := connect()
	if err != nil {
		return nil, err
	}

	logger.Info("amqp publisher ready", "exchange", exchange)

	return &AMQPPublisher{
		session:  session,
		connect:  connect,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func dialSession(url, exchange string) connectFunc {
	return func() (brokerSession, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return brokerSession{}, fmt.Errorf("events: dial broker: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return brokerSession{}, fmt.Errorf("events: open channel: %w", err)
		}

		if err := ch.ExchangeDeclare(
			exchange,
			amqp.ExchangeTopic,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return brokerSession{}, fmt.Errorf("events: declare exchange %q: %w", exchange, err)
		}

		return brokerSession{channel: ch, conn: conn}, nil
	}
}

// Publish sends event as a persistent JSON message. Concurrent calls publish in
// parallel on the shared channel.
func (p *AMQPPublisher) Publish(ctx context.Context, event ReservationEvent) error {
	body, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", event.Type, err)
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(ctx,
		p.exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("events: publish %s: %w", event.Type, err)
	}

	p.logger.DebugContext(ctx, "event published", "event_id", event.ID, "event_type", event.Type)
	return nil
}

// channel returns an open channel, reconnecting when the previous one was closed.
func (p *AMQPPublisher) channel(ctx context.Context) (amqpChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.session.usable() {
		return p.session.channel, nil
	}

	p.logger.WarnContext(ctx, "amqp channel closed, reconnecting", "exchange", p.exchange)
	_ = p.session.close()
	p.session = brokerSession{}

	session, err := p.connect()
	if err != nil {
		return nil, fmt.Errorf("events: reconnect: %w", err)
	}
	p.session = session
	return session.channel, nil
}

// Close shuts down the channel and connection. Subsequent calls are no-ops.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.session.close()
	p.session = brokerSession{}
	return err
}
