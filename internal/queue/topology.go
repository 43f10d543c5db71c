package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange      = "tux.events"
	OrderNumberingQueue = "tux.order_numbering"
	OrderNumberingDLQ   = "tux.order_numbering.dlq"
	OrderEventsDeadRK   = "dead.order_numbering"
	POSCreatedRK        = "order.pos.created"

	EmailJobsExchange = "tux.email_jobs"
	EmailJobsQueue    = "tux.email_jobs.send"
	EmailJobsDLQ      = "tux.email_jobs.dlq"
	EmailJobsRK       = "send"
	EmailJobsDeadRK   = "dead"

	CartSyncExchange = "tux.cart_sync"
)

var (
	orderNumbering = WorkQueue{
		Exchange:   EventsExchange,
		Queue:      OrderNumberingQueue,
		RoutingKey: POSCreatedRK,
		DeadQueue:  OrderNumberingDLQ,
		DeadKey:    OrderEventsDeadRK,
	}
	emailJobs = WorkQueue{
		Exchange:     EmailJobsExchange,
		ExchangeKind: amqp.ExchangeDirect,
		Queue:        EmailJobsQueue,
		RoutingKey:   EmailJobsRK,
		DeadQueue:    EmailJobsDLQ,
		DeadKey:      EmailJobsDeadRK,
	}
)

// EnsureOrderEventsTopology declares the events exchange and the durable
// numbering queue bound to POS-created events, with its dead-letter queue.
func EnsureOrderEventsTopology(qc *Client) error {
	if qc == nil {
		return nil
	}
	return qc.EnsureWorkQueue(orderNumbering)
}

func EnsureEmailJobsTopology(qc *Client) error {
	if qc == nil {
		return nil
	}
	return qc.EnsureWorkQueue(emailJobs)
}

// EnsureCartSyncTopology declares the fanout exchange instances use to relay
// cart-sync broadcasts; each instance binds its own exclusive queue.
func EnsureCartSyncTopology(qc *Client) error {
	if qc == nil {
		return nil
	}
	return qc.EnsureExchange(CartSyncExchange, amqp.ExchangeFanout)
}
