package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"tux-order-services/internal/receipt"
	"tux-order-services/internal/submission"

	"go.uber.org/zap"
)

// Putter is the slice of ObjectStore the archiver needs.
type Putter interface {
	Put(ctx context.Context, obj Object) (string, error)
}

// ArchiveKey is the object prefix for one order, e.g. orders/2024/05/<id>.
func ArchiveKey(placed submission.Placed) string {
	created := placed.Record.CreatedAt.UTC()
	return path.Join("orders", created.Format("2006"), created.Format("01"), placed.OrderID)
}

// Archive stores the order snapshot as JSON next to its PDF receipt.
func Archive(ctx context.Context, store Putter, placed submission.Placed) error {
	base := ArchiveKey(placed)

	body, err := json.Marshal(struct {
		OrderID        string                 `json:"orderId"`
		IdempotencyKey string                 `json:"idemKey"`
		Order          submission.OrderRecord `json:"order"`
	}{placed.OrderID, placed.IdempotencyKey, placed.Record})
	if err != nil {
		return err
	}
	meta := map[string]string{"order-id": placed.OrderID, "idempotency-key": placed.IdempotencyKey}
	if _, err := store.Put(ctx, Object{Key: base + "/order.json", Body: body, ContentType: "application/json", Metadata: meta}); err != nil {
		return fmt.Errorf("archive order: %w", err)
	}

	pdf, err := receipt.Render(receipt.FromRecord(placed.OrderID, "", placed.Record, nil))
	if err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	if _, err := store.Put(ctx, Object{Key: base + "/receipt.pdf", Body: pdf.Bytes(), ContentType: "application/pdf", Metadata: meta}); err != nil {
		return fmt.Errorf("archive receipt: %w", err)
	}
	return nil
}

func ArchiveSideEffect(store Putter, logger *zap.Logger) submission.SideEffect {
	if logger == nil {
		logger = zap.NewNop()
	}
	return submission.SideEffect{Name: "archive", Run: func(ctx context.Context, placed submission.Placed) error {
		if err := Archive(ctx, store, placed); err != nil {
			return err
		}
		logger.Debug("order archived", zap.String("orderId", placed.OrderID), zap.String("key", ArchiveKey(placed)))
		return nil
	}}
}
