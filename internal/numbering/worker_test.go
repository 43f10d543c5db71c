package numbering

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"tux-order-services/internal/queue"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type posRow struct {
	userID     string
	isNumbered bool
}

type fakeDB struct {
	orders    map[string]*posRow
	counter   int64
	updates   []string
	committed int
}

type fakeTx struct {
	pgx.Tx
	db *fakeDB
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{db: d}, nil
}

func (t *fakeTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "from pos_orders"):
		row, ok := t.db.orders[args[0].(string)]
		return scanFunc(func(dest ...any) error {
			if !ok {
				return pgx.ErrNoRows
			}
			*dest[0].(*string) = row.userID
			*dest[1].(*bool) = row.isNumbered
			return nil
		})
	case strings.Contains(sql, "order_counters"):
		t.db.counter++
		return scanFunc(func(dest ...any) error {
			*dest[0].(*int64) = t.db.counter
			return nil
		})
	}
	return scanFunc(func(...any) error { return pgx.ErrNoRows })
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "update pos_orders"):
		t.db.orders[args[0].(string)].isNumbered = true
		t.db.updates = append(t.db.updates, "pos:"+args[1].(string))
	case strings.Contains(sql, "update profile_orders"):
		t.db.updates = append(t.db.updates, "profile:"+args[1].(string)+":"+args[2].(string))
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.db.committed++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

func TestNumberAssignsSequentialNumbers(t *testing.T) {
	db := &fakeDB{orders: map[string]*posRow{
		"website-order-a": {userID: "7"},
		"website-order-b": {userID: "7"},
	}}
	w := New(db, nil)

	no, err := w.Number(context.Background(), "website-order-a")
	require.NoError(t, err)
	assert.Equal(t, "W-1", no)

	no, err = w.Number(context.Background(), "website-order-b")
	require.NoError(t, err)
	assert.Equal(t, "W-2", no)

	assert.Equal(t, []string{"pos:W-1", "profile:a:W-1", "pos:W-2", "profile:b:W-2"}, db.updates)
	assert.Equal(t, 2, db.committed)
}

func TestNumberSkipsNumberedOrders(t *testing.T) {
	db := &fakeDB{orders: map[string]*posRow{"website-order-a": {userID: "7", isNumbered: true}}}
	no, err := New(db, nil).Number(context.Background(), "website-order-a")
	require.NoError(t, err)
	assert.Empty(t, no)
	assert.Zero(t, db.counter)
}

func TestHandle(t *testing.T) {
	db := &fakeDB{orders: map[string]*posRow{}}
	w := New(db, nil)

	assert.NoError(t, w.Handle(context.Background(), []byte(`{"type":"something.else"}`)))
	assert.NoError(t, w.Handle(context.Background(), []byte(`garbage`)))

	body, _ := json.Marshal(queue.POSCreatedEvent{Type: queue.POSCreatedType, IdempotencyKey: "website-order-missing"})
	assert.ErrorIs(t, w.Handle(context.Background(), body), ErrOrderNotMirrored)

	db.orders["website-order-missing"] = &posRow{userID: "1"}
	assert.NoError(t, w.Handle(context.Background(), body))
	assert.Equal(t, "W-1", FormatOrderNo(db.counter))
}
