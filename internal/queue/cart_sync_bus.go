package queue

import (
	"context"
	"encoding/json"

	"tux-order-services/internal/cartsync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type cartSyncEnvelope struct {
	Instance string          `json:"instance"`
	Type     string          `json:"type"`
	CartID   string          `json:"cartId"`
	Origin   string          `json:"origin"`
	Payload  json.RawMessage `json:"payload"`
}

// CartSyncBus fans cart-sync events out to every service instance over a
// fanout exchange. Subscribers on this instance are served synchronously by
// the embedded local bus; copies coming back from the broker are skipped.
type CartSyncBus struct {
	qc       *Client
	local    *cartsync.LocalBus
	instance string
	logger   *zap.Logger
}

func NewCartSyncBus(qc *Client, logger *zap.Logger) *CartSyncBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartSyncBus{
		qc:       qc,
		local:    cartsync.NewLocalBus(),
		instance: uuid.NewString(),
		logger:   logger,
	}
}

func (b *CartSyncBus) Publish(ctx context.Context, ev cartsync.Event) error {
	if ev.Type == "" {
		ev.Type = cartsync.EventName
	}
	if err := b.local.Publish(ctx, ev); err != nil {
		return err
	}
	if b.qc == nil {
		return nil
	}

	payload, err := ev.Payload.Encode()
	if err != nil {
		return err
	}
	return b.qc.PublishJSON(ctx, CartSyncExchange, "", cartSyncEnvelope{
		Instance: b.instance,
		Type:     ev.Type,
		CartID:   ev.CartID,
		Origin:   ev.Origin,
		Payload:  payload,
	})
}

func (b *CartSyncBus) Subscribe(cartID string, fn func(cartsync.Event)) (unsubscribe func()) {
	return b.local.Subscribe(cartID, fn)
}

// Run relays events from other instances to local subscribers until ctx is
// done or the broker closes the consumer.
func (b *CartSyncBus) Run(ctx context.Context) error {
	if b.qc == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	q, err := b.qc.DeclareEphemeralQueue()
	if err != nil {
		return err
	}
	if err := b.qc.BindQueue(q.Name, CartSyncExchange, ""); err != nil {
		return err
	}
	msgs, err := b.qc.Consume(q.Name)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ErrConsumerClosed
			}
			b.deliver(ctx, msg.Body)
		}
	}
}

func (b *CartSyncBus) deliver(ctx context.Context, body []byte) {
	ev, ok := b.decode(body)
	if !ok {
		return
	}
	if err := b.local.Publish(ctx, ev); err != nil {
		b.logger.Debug("cart sync relay failed", zap.Error(err))
	}
}

func (b *CartSyncBus) decode(body []byte) (cartsync.Event, bool) {
	var env cartSyncEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		b.logger.Debug("cart sync message dropped", zap.Error(err))
		return cartsync.Event{}, false
	}
	if env.Instance == b.instance || env.CartID == "" || env.Type != cartsync.EventName {
		return cartsync.Event{}, false
	}
	return cartsync.Event{
		Type:    env.Type,
		CartID:  env.CartID,
		Origin:  env.Origin,
		Payload: cartsync.Decode(env.Payload),
	}, true
}
