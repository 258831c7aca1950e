// Package broker provides the messaging layer: a shared AMQP connection,
// fire-and-forget publish/subscribe on a topic exchange, and synchronous
// RPC over private reply queues.
package broker

import (
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Connection manages the process-wide AMQP connection and re-establishes it
// on demand when the broker drops it.
type Connection struct {
	url      string
	exchange string
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewConnection(url, exchange string, log *zap.Logger) *Connection {
	return &Connection{url: url, exchange: exchange, log: log}
}

// Exchange returns the name of the shared topic exchange.
func (c *Connection) Exchange() string {
	return c.exchange
}

// Connect dials the broker if no live connection exists. Safe to call
// repeatedly; the live connection is reused.
func (c *Connection) Connect() (*amqp.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn, nil
	}

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	c.conn = conn
	c.log.Info("connected to message broker")
	return conn, nil
}

// Channel opens a fresh channel with the topic exchange declared. Channels
// are cheap and not safe for concurrent use, so each caller gets its own.
func (c *Connection) Channel() (*amqp.Channel, error) {
	conn, err := c.Connect()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}
	return ch, nil
}

// Close tears down the connection. Idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
