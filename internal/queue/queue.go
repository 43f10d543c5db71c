package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	publishMu sync.Mutex
}

func New(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// WorkQueue is a durable queue bound to an exchange, with a dead-letter queue
// on the same exchange for messages that exhaust their retries.
type WorkQueue struct {
	Exchange     string
	ExchangeKind string
	Queue        string
	RoutingKey   string
	DeadQueue    string
	DeadKey      string
}

// EnsureWorkQueue declares the exchange, the dead-letter queue and the work
// queue, then binds both. Declarations are idempotent.
func (c *Client) EnsureWorkQueue(q WorkQueue) error {
	if err := c.EnsureExchange(q.Exchange, q.ExchangeKind); err != nil {
		return err
	}
	if _, err := c.declareDurable(q.DeadQueue, nil); err != nil {
		return err
	}
	if err := c.BindQueue(q.DeadQueue, q.Exchange, q.DeadKey); err != nil {
		return err
	}
	_, err := c.declareDurable(q.Queue, amqp.Table{
		"x-dead-letter-exchange":    q.Exchange,
		"x-dead-letter-routing-key": q.DeadKey,
	})
	if err != nil {
		return err
	}
	return c.BindQueue(q.Queue, q.Exchange, q.RoutingKey)
}

func (c *Client) EnsureExchange(name string, kind string) error {
	if kind == "" {
		kind = amqp.ExchangeTopic
	}
	return c.ch.ExchangeDeclare(name, kind, true, false, false, false, nil)
}

func (c *Client) declareDurable(name string, args amqp.Table) (amqp.Queue, error) {
	return c.ch.QueueDeclare(name, true, false, false, false, args)
}

// DeclareEphemeralQueue creates a server-named queue that lives only as long
// as this connection.
func (c *Client) DeclareEphemeralQueue() (amqp.Queue, error) {
	return c.ch.QueueDeclare("", false, true, true, false, nil)
}

func (c *Client) BindQueue(queueName, exchange, routingKey string) error {
	return c.ch.QueueBind(queueName, routingKey, exchange, false, nil)
}

func (c *Client) PublishJSON(ctx context.Context, exchange, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.publish(ctx, exchange, routingKey, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

func (c *Client) publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	return c.ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

// Consume starts an auto-acknowledged consumer, for fire-and-forget
// broadcasts where redelivery has no value.
func (c *Client) Consume(queue string) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(queue, "", true, true, false, false, nil)
}
