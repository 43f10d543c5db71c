package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tux-order-services/internal/submission"
)

// Webhook posts every placed order to an external endpoint as
// {...order, orderId}.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Webhook{url: strings.TrimSpace(url), client: &http.Client{Timeout: timeout}}
}

func (w *Webhook) Enabled() bool {
	return w != nil && w.url != ""
}

type webhookBody struct {
	submission.OrderRecord
	OrderID string `json:"orderId"`
}

func (w *Webhook) Post(ctx context.Context, order submission.Placed) error {
	if !w.Enabled() {
		return nil
	}
	body, err := json.Marshal(webhookBody{OrderRecord: order.Record, OrderID: order.OrderID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", order.IdempotencyKey)

	res, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("order webhook returned %d", res.StatusCode)
	}
	return nil
}

// SideEffect adapts the webhook for the submission pipeline.
func (w *Webhook) SideEffect() submission.SideEffect {
	return submission.SideEffect{Name: "webhook", Run: w.Post}
}
