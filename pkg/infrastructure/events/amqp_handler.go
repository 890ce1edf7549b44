package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher sends a message body to an exchange
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// AMQPPublisher publishes persistent JSON messages over a single channel
// with publisher confirms
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	acks <-chan amqp.Confirmation
	mu   sync.Mutex
}

// Verify interface compliance
var _ Publisher = (*AMQPPublisher)(nil)

// DialAMQP connects to the broker, declares exchange as a durable topic
// exchange and switches the channel into confirm mode
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	if strings.HasPrefix(url, "amqps://") {
		conn, err = amqp.DialTLS(url, &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(url)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &AMQPPublisher{
		conn: conn,
		ch:   ch,
		acks: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

// Publish sends body and waits for the broker's confirmation. Calls are
// serialised and confirmations are matched by delivery tag, so a late
// confirmation of an abandoned publish is never taken for a newer one.
func (p *AMQPPublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tag := p.ch.GetNextPublishSeqNo()
	err := p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return err
	}
	return awaitConfirmation(ctx, p.acks, tag)
}

// awaitConfirmation waits for the confirmation of delivery tag, discarding
// confirmations of earlier publishes whose callers stopped waiting
func awaitConfirmation(ctx context.Context, acks <-chan amqp.Confirmation, tag uint64) error {
	for {
		select {
		case conf, ok := <-acks:
			if !ok {
				return errors.New("broker channel closed before confirmation")
			}
			if conf.DeliveryTag < tag {
				continue
			}
			if !conf.Ack {
				return fmt.Errorf("publish NACK from broker for delivery %d", tag)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// Envelope is the message body forwarded to the broker
type Envelope struct {
	Type      string      `json:"type"`
	StreamID  string      `json:"stream_id"`
	Version   int         `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// BrokerForwarder is an EventHandler that forwards events to a message
// broker, routed by event type
type BrokerForwarder struct {
	publisher  Publisher
	exchange   string
	eventTypes map[string]bool
	logger     zerolog.Logger
}

// Verify interface compliance
var _ EventHandler = (*BrokerForwarder)(nil)

func NewBrokerForwarder(publisher Publisher, exchange string, eventTypes []string, logger zerolog.Logger) *BrokerForwarder {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	return &BrokerForwarder{
		publisher:  publisher,
		exchange:   exchange,
		eventTypes: types,
		logger:     logger.With().Str("component", "broker_forwarder").Logger(),
	}
}

// EventTypes returns the event types the forwarder accepts
func (f *BrokerForwarder) EventTypes() []string {
	types := make([]string, 0, len(f.eventTypes))
	for t := range f.eventTypes {
		types = append(types, t)
	}
	return types
}

func (f *BrokerForwarder) CanHandle(eventType string) bool {
	return f.eventTypes[eventType]
}

func (f *BrokerForwarder) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(Envelope{
		Type:      event.Type(),
		StreamID:  event.StreamID(),
		Version:   event.Version(),
		Timestamp: event.Timestamp(),
		Data:      event.Data(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.Type(), err)
	}

	if err := f.publisher.Publish(ctx, f.exchange, event.Type(), body); err != nil {
		return fmt.Errorf("failed to publish event %s to %s: %w", event.Type(), f.exchange, err)
	}

	f.logger.Debug().
		Str("event_type", event.Type()).
		Str("stream_id", event.StreamID()).
		Msg("event forwarded")
	return nil
}
