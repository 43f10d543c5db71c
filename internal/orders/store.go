// Package orders stores placed orders in PostgreSQL: the customer's order
// history, the global mirror and the point-of-sale feed.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tux-order-services/internal/submission"
	"tux-order-services/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const RecentLimit = 5

var ErrNotFound = errors.New("order not found")

type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProfileOrder is an order as listed in a customer's history.
type ProfileOrder struct {
	ID          string                 `json:"id"`
	OrderNo     string                 `json:"orderNo,omitempty"`
	Status      string                 `json:"status"`
	Fulfillment string                 `json:"fulfillment"`
	Total       float64                `json:"total"`
	CreatedAt   time.Time              `json:"createdAt"`
	Order       submission.OrderRecord `json:"order"`
}

type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// CreateProfileOrder saves the customer's contact details and the order in
// one transaction and returns the generated order id.
func (s *Store) CreateProfileOrder(ctx context.Context, rec submission.OrderRecord) (string, error) {
	if strings.TrimSpace(rec.UserID) == "" {
		return "", errors.New("order has no user")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		insert into profiles (user_id, name, phone, address, updated_at)
		values ($1, $2, $3, $4, now())
		on conflict (user_id) do update set
			name = excluded.name,
			phone = excluded.phone,
			address = case when excluded.address <> '' then excluded.address else profiles.address end,
			updated_at = now()
	`, rec.UserID, rec.CustomerName, rec.Phone, rec.Address); err != nil {
		return "", fmt.Errorf("upsert profile: %w", err)
	}

	var orderID string
	if err := tx.QueryRow(ctx, `
		insert into profile_orders (user_id, status, fulfillment, total, payload, created_at)
		values ($1, $2, $3, $4, $5::jsonb, $6)
		returning id::text
	`, rec.UserID, rec.Status, rec.Fulfillment, rec.Total, string(payload), rec.CreatedAt).Scan(&orderID); err != nil {
		return "", fmt.Errorf("insert profile order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return orderID, nil
}

func (s *Store) MirrorGlobalOrder(ctx context.Context, orderID string, rec submission.OrderRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		insert into orders (id, source, restaurant_id, payload, synced_at)
		values ($1::uuid, $2, nullif($3, ''), $4::jsonb, now())
		on conflict (id) do update set payload = excluded.payload, synced_at = now()
	`, orderID, submission.SourceWeb, rec.RestaurantID, string(payload))
	return err
}

// MirrorPOSOrder is safe to retry: a second write for the same key is a
// no-op.
func (s *Store) MirrorPOSOrder(ctx context.Context, order submission.POSOrder) error {
	payload, err := json.Marshal(order.Order)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		insert into pos_orders (idempotency_key, order_id, user_id, order_no, status, is_numbered, payload)
		values ($1, $2::uuid, $3, $4, $5, $6, $7::jsonb)
		on conflict (idempotency_key) do nothing
	`, order.IdempotencyKey, order.OrderID, order.UserID, order.OrderNo, order.Status, order.IsNumbered, string(payload))
	return err
}

// Recent lists the newest orders of a customer.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]ProfileOrder, error) {
	if limit <= 0 || limit > RecentLimit {
		limit = RecentLimit
	}
	rows, err := s.db.Query(ctx, `
		select id::text, coalesce(order_no, ''), status, fulfillment, total, payload::text, created_at
		from profile_orders
		where user_id = $1
		order by created_at desc
		limit $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ProfileOrder, 0, limit)
	for rows.Next() {
		order, err := scanProfileOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, userID, orderID string) (ProfileOrder, error) {
	row := s.db.QueryRow(ctx, `
		select id::text, coalesce(order_no, ''), status, fulfillment, total, payload::text, created_at
		from profile_orders
		where user_id = $1 and id::text = $2
	`, userID, orderID)
	order, err := scanProfileOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProfileOrder{}, ErrNotFound
	}
	return order, err
}

func scanProfileOrder(row pgx.Row) (ProfileOrder, error) {
	var (
		order   ProfileOrder
		total   pgtype.Numeric
		payload string
	)
	if err := row.Scan(&order.ID, &order.OrderNo, &order.Status, &order.Fulfillment, &total, &payload, &order.CreatedAt); err != nil {
		return ProfileOrder{}, err
	}
	order.Total = utils.NumericToAmount(total)
	if err := json.Unmarshal([]byte(payload), &order.Order); err != nil {
		return ProfileOrder{}, fmt.Errorf("decode order %s: %w", order.ID, err)
	}
	order.Order.Status = order.Status
	return order, nil
}
