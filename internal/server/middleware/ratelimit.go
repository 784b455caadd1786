package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter counts requests of each client in fixed windows.
// Sync clients poll on a timer, so the limit guards the server against
// clients configured with a tiny sync_frequency.
type RateLimiter struct {
	clients map[string]*clientWindow
	logger  *slog.Logger
	done    chan struct{}
	now     func() time.Time
	limit   int
	window  time.Duration
	mu      sync.Mutex
	stop    sync.Once
}

// clientWindow - текущее окно одного клиента
type clientWindow struct {
	start time.Time
	count int
}

// NewRateLimiter creates a limiter allowing limit requests per window for
// every client. Stop releases its sweeper goroutine.
func NewRateLimiter(limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		logger:  logger,
		done:    make(chan struct{}),
		now:     time.Now,
		limit:   limit,
		window:  window,
	}

	go rl.sweep()

	return rl
}

// sweep удаляет окна клиентов, закончившиеся больше window назад
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.forgetIdle()
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) forgetIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.clients {
		if now.Sub(w.start) >= 2*rl.window {
			delete(rl.clients, key)
		}
	}
}

// Stop stops the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stop.Do(func() { close(rl.done) })
}

// Allow records a request of client key. When the client is over its limit
// it returns false and the time until its window ends.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.clients[key] = &clientWindow{start: now, count: 1}
		return true, 0
	}

	if w.count >= rl.limit {
		return false, w.start.Add(rl.window).Sub(now)
	}
	w.count++
	return true, 0
}

// retryAfterSeconds округляет вверх: клиент не должен вернуться раньше
func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(max(1, int(math.Ceil(d.Seconds()))))
}

// RateLimitMiddleware answers 429 with Retry-After to clients over their
// limit. The owner of limiter calls Stop.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)

			if ok, wait := limiter.Allow(client); !ok {
				limiter.logger.Warn("Rate limit exceeded",
					"client", client,
					"method", r.Method,
					"path", r.URL.Path,
					"retry_after", wait,
				)

				w.Header().Set("Retry-After", retryAfterSeconds(wait))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey определяет клиента: первый адрес X-Forwarded-For, X-Real-IP
// или хост RemoteAddr без порта
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
