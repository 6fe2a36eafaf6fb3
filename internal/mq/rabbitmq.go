package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/contactsbook/apiserver/config"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Attribute keys mapped onto AMQP message properties instead of headers.
const (
	AttrType        = "type"
	AttrContentType = "content_type"

	defaultContentType = "application/json"
)

// RabbitMQClient publishes on one shared channel and consumes on a dedicated
// channel per subscription.
type RabbitMQClient struct {
	conn            *amqp.Connection
	queueDurable    bool
	queueAutoDelete bool
	prefetchCount   int

	mu       sync.Mutex
	channel  *amqp.Channel
	declared map[string]struct{}
}

// NewRabbitMQClient dials the broker from config.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQClient{
		conn:            conn,
		channel:         ch,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
		prefetchCount:   cfg.PrefetchCount,
		declared:        make(map[string]struct{}),
	}, nil
}

// Publish sends a message to the named queue. Messages on durable queues are persistent.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	msg := r.publishing(data, attrs)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.declared[channel]; !ok {
		if _, err := declareQueue(r.channel, channel, r.queueDurable, r.queueAutoDelete); err != nil {
			return "", err
		}
		r.declared[channel] = struct{}{}
	}
	if err := r.channel.PublishWithContext(ctx, "", channel, false, false, msg); err != nil {
		return "", err
	}
	return msg.MessageId, nil
}

func (r *RabbitMQClient) publishing(data []byte, attrs map[string]string) amqp.Publishing {
	msg := amqp.Publishing{
		ContentType: defaultContentType,
		MessageId:   uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Body:        data,
	}
	if r.queueDurable {
		msg.DeliveryMode = amqp.Persistent
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		switch key {
		case AttrType:
			msg.Type = value
		case AttrContentType:
			msg.ContentType = value
		default:
			headers[key] = value
		}
	}
	if len(headers) > 0 {
		msg.Headers = headers
	}
	return msg
}

// Subscribe consumes the named queue until ctx is done. A failed message is
// requeued once; a second failure drops it.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if r.prefetchCount > 0 {
		if err := ch.Qos(r.prefetchCount, 0, false); err != nil {
			return err
		}
	}
	if _, err := declareQueue(ch, channel, r.queueDurable, r.queueAutoDelete); err != nil {
		return err
	}

	consumerTag := "consumer-" + uuid.NewString()
	deliveries, err := ch.Consume(channel, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = ch.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, deliveryMessage(delivery)); err != nil {
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the publish channel and the connection.
func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func declareQueue(ch *amqp.Channel, name string, durable, autoDelete bool) (amqp.Queue, error) {
	return ch.QueueDeclare(name, durable, autoDelete, false, false, nil)
}

func deliveryMessage(delivery amqp.Delivery) Message {
	attrs := headersToAttributes(delivery.Headers)
	if delivery.Type != "" {
		if attrs == nil {
			attrs = make(map[string]string, 1)
		}
		attrs[AttrType] = delivery.Type
	}
	return Message{
		ID:         delivery.MessageId,
		Data:       delivery.Body,
		Attributes: attrs,
	}
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
