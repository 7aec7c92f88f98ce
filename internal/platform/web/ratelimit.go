package web

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dontdude/tiobot/internal/render"
)

// UserHeader carries the chat user an invocation comes from.
const UserHeader = "X-User-ID"

// Default cleanup intervals.
const (
	cleanupInterval = 1 * time.Minute
	visitorTimeout  = 3 * time.Minute
)

// bucket is the call window of one user.
type bucket struct {
	// mu guards the window so different users never contend.
	mu       sync.Mutex
	start    time.Time
	used     int
	lastSeen time.Time
}

// RateLimiter throttles invocations per user with a fixed window: a window opens on the
// first call it allows and admits at most calls invocations until it closes.
type RateLimiter struct {
	// buckets maps user ids to their state; mu guards the map only.
	buckets map[string]*bucket
	mu      sync.RWMutex

	calls  int
	window time.Duration

	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// NewRateLimiter allows calls invocations per window for each user and starts evicting
// idle buckets in the background until Close.
func NewRateLimiter(calls int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		calls:   calls,
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) getBucket(key string) *bucket {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if exists {
		return b
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, exists = rl.buckets[key]; !exists {
		b = &bucket{}
		rl.buckets[key] = b
	}
	return b
}

// Allow counts a call for key. When the window is used up it reports how long until the
// window closes.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	b := rl.getBucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := rl.now()
	b.lastSeen = now

	if b.used == 0 || now.Sub(b.start) >= rl.window {
		b.start, b.used = now, 0
	}

	if b.used < rl.calls {
		b.used++
		return true, 0
	}
	return false, b.start.Add(rl.window).Sub(now)
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle forgets users whose window has closed and who have not been seen for visitorTimeout.
func (rl *RateLimiter) evictIdle() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.lastSeen) > visitorTimeout && now.Sub(b.start) >= rl.window {
			delete(rl.buckets, key)
		}
		b.mu.Unlock()
	}
}

// RateLimitMiddleware rejects over-limit users with 429 and a cooldown embed.
// Requests without a user header are refused outright.
func (rl *RateLimiter) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(UserHeader)
		if user == "" {
			http.Error(w, UserHeader+" header is required", http.StatusBadRequest)
			return
		}

		if ok, retryAfter := rl.Allow(user); !ok {
			slog.Info("Invocation rate limited", "userID", user, "retryAfter", retryAfter)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", formatSeconds(retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(render.CooldownResponse(retryAfter, ""))
			return
		}

		next(w, r)
	}
}

// formatSeconds rounds d up to whole seconds for the Retry-After header.
func formatSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
