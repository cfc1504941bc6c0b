package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// requestRecord tracks requests for an IP
type requestRecord struct {
	timestamps []time.Time
	removed    bool // set under mu once cleanup drops the record from the map
	mu         sync.Mutex
}

// RateLimiter enforces sliding-window request limits per client IP. Each
// limit class ("upload", "download", ...) is counted separately.
type RateLimiter struct {
	window  time.Duration
	records sync.Map // map[string]*requestRecord, keyed by class + IP
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a rate limiter counting requests over window and
// starts its cleanup goroutine. Call Stop to release it.
func NewRateLimiter(window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		window: window,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes records with no timestamps inside the window
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.window)
	rl.records.Range(func(key, value any) bool {
		record := value.(*requestRecord)
		record.mu.Lock()
		defer record.mu.Unlock()

		record.timestamps = prune(record.timestamps, cutoff)
		if len(record.timestamps) == 0 {
			record.removed = true
			rl.records.CompareAndDelete(key, record)
		}
		return true
	})
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// Allow records a request for key and reports whether it is within limit.
func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := rl.now()

	record := rl.lockRecord(key)
	defer record.mu.Unlock()

	record.timestamps = prune(record.timestamps, now.Add(-rl.window))
	if len(record.timestamps) >= limit {
		return false
	}
	record.timestamps = append(record.timestamps, now)
	return true
}

// lockRecord returns the live record for key with its mutex held. A record
// that cleanup removed between the load and the lock is skipped, so no
// request is counted on a record that is no longer in the map.
func (rl *RateLimiter) lockRecord(key string) *requestRecord {
	for {
		value, _ := rl.records.LoadOrStore(key, &requestRecord{})
		record := value.(*requestRecord)

		record.mu.Lock()
		if !record.removed {
			return record
		}
		record.mu.Unlock()
		rl.records.CompareAndDelete(key, record)
	}
}

// prune drops timestamps at or before cutoff, reusing the backing array
func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

// Limit returns middleware admitting at most limit requests of class per
// client IP within the window.
func (rl *RateLimiter) Limit(class string, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)

			if !rl.Allow(class+"|"+ip, limit) {
				slog.Warn("rate limit exceeded",
					"ip", ip,
					"limit_type", class,
					"limit", limit,
					"path", r.URL.Path,
				)

				w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", "RATE_LIMIT_EXCEEDED")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
