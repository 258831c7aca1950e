package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/InterviewAndHealth/Conversation-Service/internal/apperr"
	"github.com/InterviewAndHealth/Conversation-Service/internal/telemetry"
)

// RPCHandler answers one inbound request and returns the response payload.
type RPCHandler interface {
	HandleRPC(ctx context.Context, request Envelope) (any, error)
}

// RPC provides synchronous request/response on top of the async broker.
type RPC struct {
	conn *Connection
	log  *zap.Logger
}

func NewRPC(conn *Connection, log *zap.Logger) *RPC {
	return &RPC{conn: conn, log: log}
}

// rpcResponse is the reply body: payload only, correlation travels in
// message properties.
type rpcResponse struct {
	Data json.RawMessage `json:"data"`
}

// Request publishes an envelope to the target queue and waits for the
// correlated reply. Every call gets its own exclusive auto-delete reply
// queue and a fresh correlation id, so a stale reply from an earlier call
// can never be observed. The context deadline bounds the wait.
func (r *RPC) Request(ctx context.Context, queue string, request Envelope) (json.RawMessage, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, apperr.Internal("rpc channel: %v", err)
	}
	defer ch.Close()

	replyQueue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, apperr.Internal("declare reply queue: %v", err)
	}

	deliveries, err := ch.Consume(replyQueue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, apperr.Internal("consume reply queue: %v", err)
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, apperr.Internal("marshal rpc request: %v", err)
	}

	correlationID := uuid.NewString()
	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		ReplyTo:       replyQueue.Name,
		Body:          body,
	})
	if err != nil {
		return nil, apperr.Internal("publish rpc request to %s: %v", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			telemetry.RPCTimeouts.Inc()
			return nil, apperr.Timeout("rpc to %s (%s): %v", queue, request.Type, ctx.Err())
		case d, ok := <-deliveries:
			if !ok {
				return nil, apperr.Internal("reply channel for %s closed", queue)
			}
			if d.CorrelationId != correlationID {
				// Not ours; the queue is private so this should not happen,
				// but a mismatched reply must never resolve this call.
				continue
			}
			var resp rpcResponse
			if err := json.Unmarshal(d.Body, &resp); err != nil {
				return nil, apperr.Internal("undecodable rpc reply from %s: %v", queue, err)
			}
			return resp.Data, nil
		}
	}
}

// Respond consumes this service's own RPC queue and answers each request
// via its embedded reply queue. Runs until the context is cancelled or the
// channel dies; the error is surfaced to the supervising goroutine.
func (r *RPC) Respond(ctx context.Context, queue string, handler RPCHandler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(queue, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare rpc queue %s: %w", queue, err)
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume rpc queue %s: %w", q.Name, err)
	}

	r.log.Info("answering rpc requests", zap.String("queue", q.Name))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rpc consume loop for %s closed", q.Name)
			}
			r.answer(ctx, ch, d, handler)
		}
	}
}

func (r *RPC) answer(ctx context.Context, ch *amqp.Channel, d amqp.Delivery, handler RPCHandler) {
	defer func() { _ = d.Ack(false) }()

	var request Envelope
	if err := json.Unmarshal(d.Body, &request); err != nil {
		r.log.Error("discarding undecodable rpc request", zap.Error(err))
		return
	}

	result, err := handler.HandleRPC(ctx, request)
	if err != nil {
		r.log.Error("rpc handler failed", zap.String("type", request.Type), zap.Error(err))
		result = nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		r.log.Error("marshal rpc result", zap.Error(err))
		return
	}
	body, err := json.Marshal(rpcResponse{Data: data})
	if err != nil {
		r.log.Error("marshal rpc response", zap.Error(err))
		return
	}

	err = ch.PublishWithContext(ctx, "", d.ReplyTo, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: d.CorrelationId,
		Body:          body,
	})
	if err != nil {
		r.log.Error("publish rpc response", zap.String("reply_to", d.ReplyTo), zap.Error(err))
	}
}
