// Package queue feeds notifications published to RabbitMQ into the hub.
package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/4NDR3S-01/ExposIA/domain"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	prefetch       = 16
)

type Submitter interface {
	Submit(n domain.Notification) domain.NotificationRecord
}

// Consumer reads a durable queue whose bodies have the /notify shape.
type Consumer struct {
	amqpURI   string
	queueName string
	hub       Submitter
	logger    *slog.Logger

	session    func(ctx context.Context) error
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewConsumer(amqpURI, queueName string, hub Submitter, logger *slog.Logger) *Consumer {
	c := &Consumer{
		amqpURI:    amqpURI,
		queueName:  queueName,
		hub:        hub,
		logger:     logger.With("component", "queue", "queue", queueName),
		minBackoff: initialBackoff,
		maxBackoff: maxBackoff,
	}
	c.session = c.consume
	return c
}

// Run consumes until ctx is canceled, reconnecting with capped backoff when
// the broker goes away. A cleanly ended delivery stream waits the minimum
// backoff before reconnecting.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.minBackoff
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		wait := backoff
		if err == nil {
			wait = c.minBackoff
			backoff = c.minBackoff
			c.logger.Warn("delivery stream ended, reconnecting", "after", wait)
		} else {
			c.logger.Error("consumer stopped, reconnecting", "error", err, "after", wait)
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// consume serves one broker connection. It returns nil when the delivery
// stream ends cleanly.
func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.amqpURI)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("rabbitmq consumer connected")
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handle(d)
		}
	}
}

func (c *Consumer) handle(d amqp.Delivery) {
	n, err := domain.DecodeNotification(bytes.NewReader(d.Body))
	if err != nil {
		c.logger.Warn("rejecting message", "error", err)
		if rejectErr := d.Reject(false); rejectErr != nil {
			c.logger.Error("reject failed", "error", rejectErr)
		}
		return
	}

	if n.Source == "" && d.AppId != "" {
		n.Source = d.AppId
	}
	c.hub.Submit(n)

	if err := d.Ack(false); err != nil {
		c.logger.Error("ack failed", "error", err)
	}
}
