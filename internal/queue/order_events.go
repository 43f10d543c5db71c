package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"tux-order-services/internal/submission"
)

const POSCreatedType = "order.pos.created"

var ErrUnknownEvent = errors.New("unknown event")

type POSCreatedEvent struct {
	Type           string `json:"type"`
	OrderID        string `json:"orderId"`
	IdempotencyKey string `json:"idemKey"`
	UserID         string `json:"userId"`
	RestaurantID   string `json:"restaurantId,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

// DecodePOSCreated reads a POS-created event. Other envelopes return
// ErrUnknownEvent.
func DecodePOSCreated(body []byte) (POSCreatedEvent, error) {
	var evt POSCreatedEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return POSCreatedEvent{}, err
	}
	if strings.TrimSpace(evt.Type) != POSCreatedType || strings.TrimSpace(evt.IdempotencyKey) == "" {
		return POSCreatedEvent{}, ErrUnknownEvent
	}
	return evt, nil
}

// POSCreatedPublisher announces new POS orders so the numbering worker can
// assign them a number.
type POSCreatedPublisher struct {
	qc *Client
}

func NewPOSCreatedPublisher(qc *Client) *POSCreatedPublisher {
	return &POSCreatedPublisher{qc: qc}
}

func (p *POSCreatedPublisher) Publish(ctx context.Context, order submission.Placed) error {
	if p == nil || p.qc == nil {
		return nil
	}
	return p.qc.PublishJSON(ctx, EventsExchange, POSCreatedRK, POSCreatedEvent{
		Type:           POSCreatedType,
		OrderID:        order.OrderID,
		IdempotencyKey: order.IdempotencyKey,
		UserID:         order.Record.UserID,
		RestaurantID:   order.Record.RestaurantID,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *POSCreatedPublisher) SideEffect() submission.SideEffect {
	return submission.SideEffect{Name: "pos-created-event", Run: p.Publish}
}
