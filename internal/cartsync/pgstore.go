package cartsync

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgExecQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps the durable replica per cart id in cart_replicas.
type PostgresStore struct {
	db pgExecQuerier
}

func NewPostgresStore(db pgExecQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, `select payload::text from cart_replicas where cart_id = $1`, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.Exec(ctx, `
		insert into cart_replicas (cart_id, payload, updated_at)
		values ($1, $2::jsonb, now())
		on conflict (cart_id) do update set payload = excluded.payload, updated_at = excluded.updated_at
	`, key, string(value))
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `delete from cart_replicas where cart_id = $1`, key)
	return err
}
