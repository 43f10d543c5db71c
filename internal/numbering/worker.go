// Package numbering assigns website order numbers (W-1, W-2, ...) to new
// point-of-sale orders.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tux-order-services/internal/queue"
	"tux-order-services/internal/submission"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	CounterName = "online_order_no"
	OrderPrefix = "W-"
)

var ErrOrderNotMirrored = errors.New("pos order not found")

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Worker struct {
	db     TxBeginner
	logger *zap.Logger
}

func New(db TxBeginner, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{db: db, logger: logger}
}

func FormatOrderNo(n int64) string {
	return fmt.Sprintf("%s%d", OrderPrefix, n)
}

// Handle processes one queue message. Unknown envelopes are acknowledged
// and ignored; a POS order that has not been mirrored yet is retried.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	evt, err := queue.DecodePOSCreated(body)
	if err != nil {
		if errors.Is(err, queue.ErrUnknownEvent) {
			return nil
		}
		w.logger.Warn("numbering event dropped", zap.Error(err))
		return nil
	}

	orderNo, err := w.Number(ctx, evt.IdempotencyKey)
	if err != nil {
		w.logger.Warn("order numbering failed", zap.String("idemKey", evt.IdempotencyKey), zap.Error(err))
		return err
	}
	if orderNo != "" {
		w.logger.Info("order numbered", zap.String("idemKey", evt.IdempotencyKey), zap.String("orderNo", orderNo))
	}
	return nil
}

// Number allocates the next number for the POS order keyed by idemKey and
// copies it onto the customer's order. It returns "" when the order already
// has a number.
func (w *Worker) Number(ctx context.Context, idemKey string) (string, error) {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var (
		userID     string
		isNumbered bool
	)
	err = tx.QueryRow(ctx, `
		select user_id, is_numbered
		from pos_orders
		where idempotency_key = $1
		for update
	`, idemKey).Scan(&userID, &isNumbered)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotMirrored
	}
	if err != nil {
		return "", err
	}
	if isNumbered {
		return "", nil
	}

	var next int64
	if err := tx.QueryRow(ctx, `
		insert into order_counters (name, last_value)
		values ($1, 1)
		on conflict (name) do update set last_value = order_counters.last_value + 1
		returning last_value
	`, CounterName).Scan(&next); err != nil {
		return "", fmt.Errorf("allocate order number: %w", err)
	}
	orderNo := FormatOrderNo(next)

	if _, err := tx.Exec(ctx, `
		update pos_orders
		set order_no = $2, is_numbered = true, numbered_at = $3
		where idempotency_key = $1
	`, idemKey, orderNo, time.Now().UTC()); err != nil {
		return "", err
	}

	if orderID, ok := submission.OrderIDFromKey(idemKey); ok && userID != "" {
		if _, err := tx.Exec(ctx, `
			update profile_orders
			set order_no = $3
			where user_id = $1 and id::text = $2
		`, userID, orderID, orderNo); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return orderNo, nil
}

// Run consumes POS-created events until ctx is done.
func (w *Worker) Run(ctx context.Context, qc *queue.Client) error {
	return qc.ConsumeWithRetry(ctx, queue.OrderNumberingQueue, w.Handle, 5, 5*time.Second)
}
