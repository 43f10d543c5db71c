package queue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"tux-order-services/internal/checkout"
	"tux-order-services/internal/money"
	"tux-order-services/internal/submission"

	"go.uber.org/zap"
)

const (
	EmailKindOrderConfirmation = "email.order_confirmation"
	EmailKindPasswordReset     = "email.password_reset"
)

type EmailJob struct {
	Kind      string         `json:"kind"`
	To        string         `json:"to"`
	Subject   string         `json:"subject"`
	Params    map[string]any `json:"params"`
	CreatedAt string         `json:"createdAt"`
	Attempt   int            `json:"attempt"`
}

// Emailer hands e-mail jobs to whatever delivers them.
type Emailer interface {
	Enqueue(ctx context.Context, job EmailJob) error
}

// QueueEmailer publishes jobs to the e-mail exchange for the mail worker.
type QueueEmailer struct {
	qc *Client
}

func NewQueueEmailer(qc *Client) *QueueEmailer {
	return &QueueEmailer{qc: qc}
}

func (e *QueueEmailer) Enqueue(ctx context.Context, job EmailJob) error {
	return e.qc.PublishJSON(ctx, EmailJobsExchange, EmailJobsRK, job)
}

// LogEmailer only logs jobs; used when no broker is configured.
type LogEmailer struct {
	logger *zap.Logger
}

func NewLogEmailer(logger *zap.Logger) *LogEmailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmailer{logger: logger}
}

func (e *LogEmailer) Enqueue(_ context.Context, job EmailJob) error {
	e.logger.Info("email queued",
		zap.String("kind", job.Kind),
		zap.String("to", job.To),
		zap.String("subject", job.Subject),
		zap.Any("params", job.Params),
	)
	return nil
}

// LogMailerHandler consumes the e-mail queue and logs every job. It stands in
// for a real provider integration.
func LogMailerHandler(logger *zap.Logger) HandlerFunc {
	mailer := NewLogEmailer(logger)
	return func(ctx context.Context, body []byte) error {
		var job EmailJob
		if err := json.Unmarshal(body, &job); err != nil {
			mailer.logger.Warn("email job dropped", zap.Error(err))
			return nil
		}
		return mailer.Enqueue(ctx, job)
	}
}

func OrderConfirmationJob(order submission.Placed) EmailJob {
	rec := order.Record
	fulfillment := "Pickup"
	if rec.Fulfillment == string(checkout.FulfillmentDelivery) {
		fulfillment = "Delivery"
	}
	address := rec.Address
	if address == "" {
		address = "Pickup order"
	}
	notes := rec.Instructions
	if notes == "" {
		notes = "None"
	}

	return EmailJob{
		Kind:    EmailKindOrderConfirmation,
		To:      strings.TrimSpace(rec.Email),
		Subject: "Your TUX order is in",
		Params: map[string]any{
			"order_id":       order.OrderID,
			"customer_name":  rec.CustomerName,
			"order_items":    rec.Items,
			"order_total":    money.FormatCurrency(rec.Total),
			"fulfillment":    fulfillment,
			"payment_method": checkout.PaymentMethod(rec.PaymentMethod).Label(),
			"phone":          rec.Phone,
			"address":        address,
			"notes":          notes,
			"delivery_zone":  rec.DeliveryZone,
			"restaurant_id":  rec.RestaurantID,
		},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Attempt:   1,
	}
}

func PasswordResetJob(to, resetLink, token string, expiresAt time.Time) EmailJob {
	return EmailJob{
		Kind:    EmailKindPasswordReset,
		To:      strings.TrimSpace(to),
		Subject: "Password Reset Instructions",
		Params: map[string]any{
			"resetLink": resetLink,
			"token":     token,
			"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Attempt:   1,
	}
}

// ConfirmationSideEffect enqueues the order confirmation after submission.
func ConfirmationSideEffect(emailer Emailer) submission.SideEffect {
	return submission.SideEffect{Name: "confirmation-email", Run: func(ctx context.Context, order submission.Placed) error {
		job := OrderConfirmationJob(order)
		if job.To == "" {
			return nil
		}
		return emailer.Enqueue(ctx, job)
	}}
}
