// Package scheduler asks the external scheduler service to re-publish an
// event after a delay. Durable timers live in that service so interview
// timeouts survive restarts of this process.
package scheduler

import (
	"context"
	"fmt"

	"github.com/InterviewAndHealth/Conversation-Service/internal/broker"
)

// Publisher is the slice of the event bus the client needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event broker.Envelope)
}

// Client publishes schedule requests to the scheduler queue.
type Client struct {
	bus   Publisher
	queue string
}

func NewClient(bus Publisher, queue string) *Client {
	return &Client{bus: bus, queue: queue}
}

// request is the scheduler-service wire contract: after Seconds, re-publish
// an event of the given type and data to the Service topic. Resubmitting the
// same id before it fires replaces the pending timer where the scheduler
// supports it; otherwise both fire and the consumer's idempotence absorbs
// the duplicate.
type request struct {
	ID      string `json:"id"`
	Seconds int    `json:"seconds"`
	Service string `json:"service"`
	Type    string `json:"type"`
	Data    any    `json:"data"`
}

// Schedule submits one delayed event. Fire-and-forget: there is no
// acknowledgment that the timer was accepted or will fire.
func (c *Client) Schedule(ctx context.Context, id string, seconds int, targetTopic, eventType string, data any) error {
	env, err := broker.NewEnvelope(broker.EventScheduleEvent, request{
		ID:      id,
		Seconds: seconds,
		Service: targetTopic,
		Type:    eventType,
		Data:    data,
	})
	if err != nil {
		return fmt.Errorf("build schedule request %s: %w", id, err)
	}
	c.bus.Publish(ctx, c.queue, env)
	return nil
}
