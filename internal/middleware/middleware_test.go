package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tux-order-services/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	id, _ := GetUserID(r.Context())
	_, _ = w.Write([]byte(id))
}

func TestCustomerAuth(t *testing.T) {
	handler := CustomerAuth("secret")(http.HandlerFunc(echoUser))
	token, err := auth.IssueAccessToken("42", "secret", time.Hour, time.Now())
	require.NoError(t, err)

	cases := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"missing", "", http.StatusUnauthorized, "Authentication required."},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "Invalid or expired token."},
		{"valid", "Bearer " + token, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "42", rec.Body.String())
				return
			}
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "UNAUTHORIZED", body["error"])
			assert.Equal(t, tc.message, body["message"])
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-Id", "abc")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
}

func TestPercentile(t *testing.T) {
	values := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, int64(5), percentile(values, 0.5))
	assert.Equal(t, int64(10), percentile(values, 0.95))
	assert.Equal(t, int64(0), percentile(nil, 0.5))
}

func TestRouteLatencyRollsOver(t *testing.T) {
	l := &routeLatency{routes: map[string]*latencyRing{}}
	for i := int64(1); i <= latencySamples; i++ {
		l.observe("GET /api/public/menu", 1000)
	}
	p50, p95 := l.observe("GET /api/public/menu", 1)
	assert.Equal(t, int64(1000), p50)
	assert.Equal(t, int64(1000), p95)

	p50, p95 = l.observe("GET /health", 7)
	assert.Equal(t, int64(7), p50)
	assert.Equal(t, int64(7), p95)
	assert.Len(t, l.routes["GET /api/public/menu"].sorted(), latencySamples)
}
