package broker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type recordingAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *recordingAcknowledger) Ack(_ uint64, _ bool) error {
	a.acked = true
	return nil
}

func (a *recordingAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *recordingAcknowledger) Reject(_ uint64, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

type handlerFunc func(ctx context.Context, event Envelope) error

func (f handlerFunc) HandleEvent(ctx context.Context, event Envelope) error {
	return f(ctx, event)
}

func delivery(ack *recordingAcknowledger, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, Body: []byte(body)}
}

const eventBody = `{"type":"GENERATE_REPORT","data":{"interviewId":"i1"}}`

func TestDispatchAcksOnSuccess(t *testing.T) {
	bus := NewEventBus(nil, zap.NewNop())
	ack := &recordingAcknowledger{}

	bus.dispatch(context.Background(), delivery(ack, eventBody),
		handlerFunc(func(context.Context, Envelope) error { return nil }))

	if !ack.acked || ack.nacked {
		t.Fatalf("expected ack on clean return, got acked=%v nacked=%v", ack.acked, ack.nacked)
	}
}

func TestDispatchRejectsPoisonWithoutRequeue(t *testing.T) {
	bus := NewEventBus(nil, zap.NewNop())

	// Undecodable body.
	ack := &recordingAcknowledger{}
	bus.dispatch(context.Background(), delivery(ack, "not json"),
		handlerFunc(func(context.Context, Envelope) error {
			t.Fatal("handler must not run for undecodable events")
			return nil
		}))
	if !ack.nacked || ack.requeue {
		t.Fatalf("expected reject without requeue, got nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}

	// Handler failure unrelated to cancellation.
	ack = &recordingAcknowledger{}
	bus.dispatch(context.Background(), delivery(ack, eventBody),
		handlerFunc(func(context.Context, Envelope) error {
			return errors.New("unknown interview state")
		}))
	if !ack.nacked || ack.requeue {
		t.Fatalf("expected reject without requeue, got nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
}

func TestDispatchRequeuesInterruptedWork(t *testing.T) {
	bus := NewEventBus(nil, zap.NewNop())

	// Shutdown cancels the consume context while the handler is mid-flight;
	// the message must come back rather than be dropped.
	ctx, cancel := context.WithCancel(context.Background())
	ack := &recordingAcknowledger{}
	bus.dispatch(ctx, delivery(ack, eventBody),
		handlerFunc(func(ctx context.Context, _ Envelope) error {
			cancel()
			return fmt.Errorf("cache report: %w", ctx.Err())
		}))
	if !ack.nacked || !ack.requeue {
		t.Fatalf("expected requeue on cancellation, got nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
	if ack.acked {
		t.Fatal("interrupted work must not be acked")
	}

	// A wrapped deadline error requeues even when the consume context itself
	// is still live.
	ack = &recordingAcknowledger{}
	bus.dispatch(context.Background(), delivery(ack, eventBody),
		handlerFunc(func(context.Context, Envelope) error {
			return fmt.Errorf("model turn: %w", context.DeadlineExceeded)
		}))
	if !ack.nacked || !ack.requeue {
		t.Fatalf("expected requeue on deadline, got nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
}
