package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
)

// publisher is the subset of *amqp.Channel used by AMQPSink.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes audit events as persistent JSON messages to a topic
// exchange. The routing key is "audit." plus the lower-cased action,
// e.g. audit.trip_created.
type AMQPSink struct {
	ch       publisher
	exchange string
	conn     *amqp.Connection
}

// NewAMQPSink wraps an already open channel. Close is a no-op for sinks
// built this way; the caller owns the connection.
func NewAMQPSink(ch publisher, exchange string) *AMQPSink {
	return &AMQPSink{ch: ch, exchange: exchange}
}

// DialAMQPSink connects to url, retrying with exponential backoff for up to
// maxAttempts attempts, opens a channel and declares exchange as a durable
// topic exchange.
func DialAMQPSink(ctx context.Context, url, exchange string, maxAttempts uint64, log *slog.Logger) (*AMQPSink, error) {
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	backoff := retry.WithMaxRetries(maxAttempts-1, retry.WithCappedDuration(30*time.Second, retry.NewExponential(time.Second)))

	var conn *amqp.Connection
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c, err := amqp.Dial(url)
		if err != nil {
			log.WarnContext(ctx, "rabbitmq dial failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit.DialAMQPSink: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("audit.DialAMQPSink: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("audit.DialAMQPSink: declare exchange %s: %w", exchange, err)
	}

	log.InfoContext(ctx, "rabbitmq connected", "exchange", exchange, "attempts", attempt)
	return &AMQPSink{ch: ch, exchange: exchange, conn: conn}, nil
}

// RoutingKey returns the routing key used for action.
func RoutingKey(action string) string {
	return "audit." + strings.ToLower(action)
}

func (s *AMQPSink) Write(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit.AMQPSink.Write: marshal: %w", err)
	}

	err = s.ch.PublishWithContext(ctx, s.exchange, RoutingKey(ev.Action), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Action,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("audit.AMQPSink.Write: publish %s: %w", ev.Action, err)
	}
	return nil
}

// Close closes the connection opened by DialAMQPSink.
func (s *AMQPSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
