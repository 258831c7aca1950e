package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/InterviewAndHealth/Conversation-Service/internal/telemetry"
)

// EventHandler consumes one event. Handlers must tolerate duplicate and
// out-of-order delivery; the queue is at-least-once.
type EventHandler interface {
	HandleEvent(ctx context.Context, event Envelope) error
}

// EventBus publishes and subscribes to events on the shared topic exchange.
type EventBus struct {
	conn *Connection
	log  *zap.Logger
}

func NewEventBus(conn *Connection, log *zap.Logger) *EventBus {
	return &EventBus{conn: conn, log: log}
}

// Publish sends an envelope to the given topic. Fire-and-forget: failures
// are logged and swallowed so a broker outage never fails the caller's
// request path.
func (b *EventBus) Publish(ctx context.Context, topic string, event Envelope) {
	if err := b.publish(ctx, topic, event); err != nil {
		telemetry.PublishFailures.Inc()
		b.log.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("type", event.Type),
			zap.Error(err))
	}
}

func (b *EventBus) publish(ctx context.Context, topic string, event Envelope) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return ch.PublishWithContext(ctx, b.conn.Exchange(), topic, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Subscribe declares a durable quorum queue bound to the given topics and
// consumes it until the context is cancelled or the channel dies. Messages
// are acked only after the handler returns cleanly. A handler interrupted
// by shutdown requeues its message so the work is redelivered; any other
// handler error rejects without requeue so one poison message cannot stall
// the queue. The returned error is for the supervising goroutine; the loop
// never restarts itself.
func (b *EventBus) Subscribe(ctx context.Context, queue string, topics []string, handler EventHandler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-queue-type": "quorum",
	})
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	for _, topic := range topics {
		if err := ch.QueueBind(q.Name, topic, b.conn.Exchange(), false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", q.Name, topic, err)
		}
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	b.log.Info("subscribed to service queue", zap.String("queue", q.Name))
	telemetry.ActiveSubscriptions.Inc()
	defer telemetry.ActiveSubscriptions.Dec()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("consume loop for %s closed", q.Name)
			}
			b.dispatch(ctx, d, handler)
		}
	}
}

func (b *EventBus) dispatch(ctx context.Context, d amqp.Delivery, handler EventHandler) {
	telemetry.EventsConsumed.Inc()

	var event Envelope
	if err := json.Unmarshal(d.Body, &event); err != nil {
		b.log.Error("discarding undecodable event", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := handler.HandleEvent(ctx, event); err != nil {
		telemetry.EventHandlerErrors.Inc()
		// Interrupted work is not poison: requeue so another consumer (or
		// this process after restart) finishes it.
		requeue := ctx.Err() != nil ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded)
		b.log.Error("event handler failed",
			zap.String("type", event.Type),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}
