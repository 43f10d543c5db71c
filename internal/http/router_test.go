package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"tux-order-services/internal/cartsync"
	"tux-order-services/internal/config"
	"tux-order-services/internal/http/handlers"
	"tux-order-services/internal/menu"
	"tux-order-services/internal/orders"
	"tux-order-services/internal/submission"
	"tux-order-services/internal/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOrders struct {
	mu      sync.Mutex
	records map[string]submission.OrderRecord
}

func (f *fakeOrders) CreateProfileOrder(_ context.Context, rec submission.OrderRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "ord-" + strconv.Itoa(len(f.records)+1)
	f.records[id] = rec
	return id, nil
}

func (f *fakeOrders) MirrorGlobalOrder(context.Context, string, submission.OrderRecord) error {
	return nil
}

func (f *fakeOrders) MirrorPOSOrder(context.Context, submission.POSOrder) error { return nil }

func (f *fakeOrders) Recent(_ context.Context, userID string, _ int) ([]orders.ProfileOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []orders.ProfileOrder
	for id, rec := range f.records {
		if rec.UserID == userID {
			out = append(out, orders.ProfileOrder{ID: id, Status: rec.Status, Total: rec.Total, Order: rec})
		}
	}
	return out, nil
}

func (f *fakeOrders) Get(_ context.Context, userID, orderID string) (orders.ProfileOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[orderID]
	if !ok || rec.UserID != userID {
		return orders.ProfileOrder{}, orders.ErrNotFound
	}
	return orders.ProfileOrder{ID: orderID, Order: rec}, nil
}

type fakeUsers struct {
	mu     sync.Mutex
	users  map[string]users.User
	resets map[string]users.ResetToken
}

func (f *fakeUsers) Create(_ context.Context, u users.NewUser) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return users.User{}, users.ErrEmailTaken
		}
	}
	user := users.User{ID: strconv.Itoa(len(f.users) + 1), Email: u.Email, PasswordHash: u.PasswordHash, Name: u.Name}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Update(_ context.Context, id string, c users.Changes) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	if c.Name != nil {
		u.Name = *c.Name
	}
	if c.Phone != nil {
		u.Phone = *c.Phone
	}
	if c.PasswordHash != nil {
		u.PasswordHash = *c.PasswordHash
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeUsers) CreateResetToken(_ context.Context, t users.ResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[t.Token] = t
	return nil
}

func (f *fakeUsers) FindResetToken(_ context.Context, token string) (users.ResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.resets[token]
	if !ok {
		return users.ResetToken{}, users.ErrNotFound
	}
	return t, nil
}

func (f *fakeUsers) DeleteResetToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.resets, token)
	return nil
}

type testAPI struct {
	handler http.Handler
	orders  *fakeOrders
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := config.Config{
		Env:             "test",
		JWTSecret:       "jwt-secret",
		CartTokenSecret: "cart-secret",
		Currency:        "EGP",
		Timezone:        "UTC",
	}
	transfer := cartsync.NewMemoryStore(time.Minute)
	registry := cartsync.NewRegistry(func(cartID string) *cartsync.Surface {
		return cartsync.NewSurface(cartsync.SurfaceConfig{
			CartID:       cartID,
			Durable:      cartsync.NewMemoryStore(0),
			Transfer:     transfer,
			PersistDelay: time.Hour,
		})
	}, time.Minute, nil)
	fo := &fakeOrders{records: map[string]submission.OrderRecord{}}

	h := &handlers.Handler{
		Logger:   zap.NewNop(),
		Config:   cfg,
		Catalog:  menu.Default(),
		Zones:    menu.DefaultZones(),
		Carts:    registry,
		Transfer: transfer,
		Orders:   fo,
		Checkout: submission.NewService(fo, submission.Options{}),
		Users: users.NewService(&fakeUsers{users: map[string]users.User{}, resets: map[string]users.ResetToken{}}, users.ServiceConfig{
			JWTSecret: cfg.JWTSecret,
		}),
	}
	return &testAPI{handler: NewRouter(zap.NewNop(), cfg, Deps{Handler: h}), orders: fo}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers map[string]string) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (a *testAPI) newCart(t *testing.T) (string, map[string]string) {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/api/public/carts", nil, nil)
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		CartID string `json:"cartId"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created.CartID, map[string]string{"X-Cart-Token": created.Token}
}

func (a *testAPI) register(t *testing.T, email string) string {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "password": "hunter22", "name": "Mona",
	}, nil)
	require.Equal(t, http.StatusCreated, status)
	var session users.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	return session.Token
}

func decodeSnapshot(t *testing.T, env envelope) cartsync.Snapshot {
	t.Helper()
	var snap cartsync.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap
}

func TestHealthAndMenu(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	status, env := api.do(t, http.MethodGet, "/api/public/delivery-zones", nil, nil)
	require.Equal(t, http.StatusOK, status)
	var zones []menu.DeliveryZone
	require.NoError(t, json.Unmarshal(env.Data, &zones))
	assert.Len(t, zones, 2)

	status, env = api.do(t, http.MethodGet, "/api/public/menu", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "single-smashed-patty")
}

func TestCartRequiresToken(t *testing.T) {
	api := newTestAPI(t)
	cartID, _ := api.newCart(t)

	status, env := api.do(t, http.MethodGet, "/api/public/carts/"+cartID, nil, map[string]string{"X-Cart-Token": "nope"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "CART_NOT_FOUND", env.Error)
}

func TestCartEditing(t *testing.T) {
	api := newTestAPI(t)
	cartID, token := api.newCart(t)
	base := "/api/public/carts/" + cartID

	status, _ := api.do(t, http.MethodPost, base+"/items", map[string]any{
		"itemId": "single-smashed-patty", "quantity": "2", "extras": []string{"bacon"},
	}, token)
	require.Equal(t, http.StatusCreated, status)

	status, env := api.do(t, http.MethodGet, base+"/totals", nil, token)
	require.Equal(t, http.StatusOK, status)
	var totals struct {
		Totals struct {
			Subtotal float64 `json:"subtotal"`
			Total    float64 `json:"total"`
		} `json:"totals"`
		FormattedTotal string `json:"formattedTotal"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &totals))
	assert.Equal(t, 230.0, totals.Totals.Subtotal)
	assert.Equal(t, "EGP 230.00", totals.FormattedTotal)

	status, env = api.do(t, http.MethodPost, base+"/items", map[string]any{"itemId": "caviar"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ITEM", env.Error)

	status, env = api.do(t, http.MethodPatch, base+"/lines/0", map[string]any{"action": "increment"}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, decodeSnapshot(t, env).ItemCount)

	status, env = api.do(t, http.MethodPatch, base+"/lines/0", map[string]any{"quantity": "abc"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUANTITY", env.Error)

	status, _ = api.do(t, http.MethodPatch, base+"/lines/4", map[string]any{"quantity": 2}, token)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = api.do(t, http.MethodPut, base+"/checkout", map[string]any{
		"fulfillment": "delivery", "deliveryZoneId": "kornish-el-maadi", "address": "5 Road 9",
	}, token)
	require.Equal(t, http.StatusOK, status)
	snap := decodeSnapshot(t, env)
	assert.Equal(t, 385.0, snap.Totals.Total)
	assert.Equal(t, 385.0, snap.Checkout.CashAmount)

	status, env = api.do(t, http.MethodPut, base+"/checkout", map[string]any{"fulfillment": "drone"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)

	status, _ = api.do(t, http.MethodDelete, base+"/lines/5", nil, token)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = api.do(t, http.MethodDelete, base, nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, decodeSnapshot(t, env).ItemCount)
}

func TestCartTransferIsSingleUse(t *testing.T) {
	api := newTestAPI(t)
	cartID, token := api.newCart(t)
	base := "/api/public/carts/" + cartID

	api.do(t, http.MethodPost, base+"/items", map[string]any{"itemId": "soda"}, token)
	status, _ := api.do(t, http.MethodPost, base+"/transfer", nil, token)
	require.Equal(t, http.StatusOK, status)

	status, env := api.do(t, http.MethodGet, base+"/transfer", nil, token)
	require.Equal(t, http.StatusOK, status)
	var transfer cartsync.Transfer
	require.NoError(t, json.Unmarshal(env.Data, &transfer))
	require.Len(t, transfer.Cart, 1)
	assert.Equal(t, "soda", transfer.Cart[0].ID)

	status, _ = api.do(t, http.MethodGet, base+"/transfer", nil, token)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCartSubmit(t *testing.T) {
	api := newTestAPI(t)
	cartID, headers := api.newCart(t)
	base := "/api/public/carts/" + cartID

	status, _ := api.do(t, http.MethodPost, base+"/submit", nil, headers)
	assert.Equal(t, http.StatusUnauthorized, status)

	headers["Authorization"] = "Bearer " + api.register(t, "mona@example.com")

	status, env := api.do(t, http.MethodPost, base+"/submit", nil, headers)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EMPTY_CART", env.Error)

	api.do(t, http.MethodPost, base+"/items", map[string]any{
		"itemId": "single-smashed-patty", "quantity": 2, "extras": []string{"bacon"},
	}, headers)
	api.do(t, http.MethodPut, base+"/checkout", map[string]any{
		"name":           "Mona",
		"phone":          "101 234 5678",
		"email":          "mona@example.com",
		"fulfillment":    "delivery",
		"address":        "5 Road 9, Maadi",
		"deliveryZoneId": "kornish-el-maadi",
	}, headers)

	status, env = api.do(t, http.MethodPost, base+"/submit", nil, headers)
	require.Equal(t, http.StatusCreated, status, env.Message)
	var result submission.Result
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "ord-1", result.OrderID)
	assert.Equal(t, "website-order-ord-1", result.IdempotencyKey)
	assert.Equal(t, 270.0, result.Order.Total)
	assert.Equal(t, "+201012345678", result.Order.Phone)

	status, env = api.do(t, http.MethodGet, base, nil, headers)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, decodeSnapshot(t, env).ItemCount)

	status, env = api.do(t, http.MethodGet, "/api/public/orders", nil, headers)
	require.Equal(t, http.StatusOK, status)
	var recent []orders.ProfileOrder
	require.NoError(t, json.Unmarshal(env.Data, &recent))
	require.Len(t, recent, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/public/orders/ord-1/receipt", nil)
	req.Header.Set("Authorization", headers["Authorization"])
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	status, _ = api.do(t, http.MethodGet, "/api/public/orders/ord-9/receipt", nil, headers)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuthRoutes(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "Mona@Example.com")

	status, env := api.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "mona@example.com", "password": "x", "name": "Other",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "EMAIL_TAKEN", env.Error)

	status, _ = api.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "mona@example.com", "password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = api.do(t, http.MethodGet, "/api/auth/me", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, status)
	var me users.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "mona@example.com", me.Email)

	status, env = api.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Authentication required.", env.Message)

	for _, email := range []string{"mona@example.com", "ghost@example.com"} {
		status, env = api.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": email}, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(env.Data), "If the email exists, a reset link has been sent.")
	}

	status, env = api.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{"token": "bogus", "password": "pw"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid or expired token.", env.Message)
}
