package cartsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(0, 0)
	m := NewMemoryStore(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	raw, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(raw))

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, m.Sweep())
}

func TestMemoryStoreTakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)
	require.NoError(t, m.Set(ctx, "a", []byte("1")))

	raw, err := take(ctx, m, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(raw))

	_, err = take(ctx, m, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeRow struct {
	value []byte
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.value
	return nil
}

type fakeDB struct {
	row    fakeRow
	execs  []string
	params [][]any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	f.params = append(f.params, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	store := NewPostgresStore(db)
	_, err := store.Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	db.row = fakeRow{err: errors.New("boom")}
	_, err = store.Get(ctx, "c1")
	assert.EqualError(t, err, "boom")

	db.row = fakeRow{value: []byte(`{"cart":[]}`)}
	raw, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, `{"cart":[]}`, string(raw))

	require.NoError(t, store.Set(ctx, "c1", []byte(`{}`)))
	require.Len(t, db.params, 1)
	assert.Equal(t, []any{"c1", "{}"}, db.params[0])
	assert.Contains(t, db.execs[0], "cart_replicas")
}
