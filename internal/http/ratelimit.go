package http

import (
	"net/http"
	"sync"
	"time"
)

// rateLimiter is a fixed one-minute window per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientWindow
	perMin   int
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	start    time.Time
	requests int
}

func newRateLimiter(perMinute int, now func() time.Time) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{
		clients: make(map[string]*clientWindow),
		perMin:  perMinute,
		now:     now,
		stop:    make(chan struct{}),
	}
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[clientIP]
	if !ok || now.Sub(c.start) >= time.Minute {
		rl.clients[clientIP] = &clientWindow{start: now, requests: 1}
		return true
	}
	c.requests++
	return c.requests <= rl.perMin
}

// startCleanup drops idle clients every interval until stop is called.
func (rl *rateLimiter) startCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stop:
				return
			}
		}
	}()
}

func (rl *rateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-10 * time.Minute)
	removed := 0
	for ip, c := range rl.clients {
		if c.start.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

func (rl *rateLimiter) activeClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *rateLimiter) shutdown() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// limitMutations rejects writes over the per-IP budget. Reads pass through.
func (rl *rateLimiter) limitMutations(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if !rl.allow(extractClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, r, ErrRateLimited)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
