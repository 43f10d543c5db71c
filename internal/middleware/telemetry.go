package middleware

import (
	"bufio"
	"errors"
	"math"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const latencySamples = 200

// latencyRing keeps the last len(samples) durations of one route, in ms.
type latencyRing struct {
	samples []int64
	next    int
	full    bool
}

func (r *latencyRing) push(ms int64) {
	r.samples[r.next] = ms
	r.next = (r.next + 1) % len(r.samples)
	if r.next == 0 {
		r.full = true
	}
}

func (r *latencyRing) sorted() []int64 {
	n := r.next
	if r.full {
		n = len(r.samples)
	}
	out := slices.Clone(r.samples[:n])
	slices.Sort(out)
	return out
}

type routeLatency struct {
	mu     sync.Mutex
	routes map[string]*latencyRing
}

// observe records one request and returns the route's rolling p50 and p95.
func (l *routeLatency) observe(route string, ms int64) (p50, p95 int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ring, ok := l.routes[route]
	if !ok {
		ring = &latencyRing{samples: make([]int64, latencySamples)}
		l.routes[route] = ring
	}
	ring.push(ms)
	values := ring.sorted()
	return percentile(values, 0.5), percentile(values, 0.95)
}

// percentile expects values sorted ascending.
func percentile(values []int64, p float64) int64 {
	if len(values) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	return values[max(0, min(idx, len(values)-1))]
}

var requestLatency = &routeLatency{routes: make(map[string]*latencyRing)}

type telemetryRecorder struct {
	response http.ResponseWriter
	status   int
	bytes    int
}

func (r *telemetryRecorder) Header() http.Header {
	return r.response.Header()
}

func (r *telemetryRecorder) WriteHeader(status int) {
	r.status = status
	r.response.WriteHeader(status)
}

func (r *telemetryRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.response.Write(data)
	r.bytes += n
	return n, err
}

// Hijack lets cart websocket upgrades pass through the recorder.
func (r *telemetryRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.response.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return hj.Hijack()
}

func (r *telemetryRecorder) Flush() {
	if f, ok := r.response.(http.Flusher); ok {
		f.Flush()
	}
}

// Telemetry logs one line per request with the route's rolling latency.
// Cart routes carry the cart id; a websocket line is written when the
// session ends and is kept out of the latency figures.
func Telemetry(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &telemetryRecorder{response: w}

			next.ServeHTTP(recorder, r)

			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", recorder.bytes),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
				zap.String("requestId", GetRequestID(r.Context())),
			}
			if cartID := chi.URLParam(r, "cartId"); cartID != "" {
				fields = append(fields, zap.String("cartId", cartID))
			}

			if status == http.StatusSwitchingProtocols {
				logger.Info("ws_session", fields...)
				return
			}

			p50, p95 := requestLatency.observe(r.Method+" "+route, elapsed.Milliseconds())
			fields = append(fields, zap.Int64("p50_ms", p50), zap.Int64("p95_ms", p95))
			if status >= http.StatusInternalServerError {
				logger.Warn("http_request", fields...)
				return
			}
			logger.Info("http_request", fields...)
		})
	}
}
