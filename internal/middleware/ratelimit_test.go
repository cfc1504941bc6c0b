package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(time.Hour)
	t.Cleanup(rl.Stop)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		if !rl.Allow("upload|1.2.3.4", 3) {
			t.Fatalf("request %d rejected, want allowed", i+1)
		}
	}
	if rl.Allow("upload|1.2.3.4", 3) {
		t.Error("fourth request allowed, want rejected")
	}
	if !rl.Allow("upload|5.6.7.8", 3) {
		t.Error("other IP should have its own budget")
	}
	if !rl.Allow("download|1.2.3.4", 3) {
		t.Error("other class should have its own budget")
	}

	*now = now.Add(time.Hour + time.Second)
	if !rl.Allow("upload|1.2.3.4", 3) {
		t.Error("request after the window should be allowed")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, now := newTestLimiter(t)
	rl.Allow("upload|1.2.3.4", 5)

	*now = now.Add(2 * time.Hour)
	rl.cleanup()

	if _, ok := rl.records.Load("upload|1.2.3.4"); ok {
		t.Error("stale record should be removed")
	}
}

func TestRateLimiter_RemovedRecordNotReused(t *testing.T) {
	rl, now := newTestLimiter(t)
	rl.Allow("upload|1.2.3.4", 1)

	// A caller that loaded the record before cleanup ran still holds it.
	value, _ := rl.records.Load("upload|1.2.3.4")
	stale := value.(*requestRecord)

	*now = now.Add(2 * time.Hour)
	rl.cleanup()
	if !stale.removed {
		t.Fatal("cleanup should mark the dropped record")
	}

	// Put the dropped record back as if the load had won the race.
	rl.records.Store("upload|1.2.3.4", stale)

	if !rl.Allow("upload|1.2.3.4", 1) {
		t.Fatal("first request after cleanup rejected")
	}
	if rl.Allow("upload|1.2.3.4", 1) {
		t.Error("second request allowed, want the live record to count the first")
	}
	if len(stale.timestamps) != 0 {
		t.Errorf("removed record counted %d requests, want 0", len(stale.timestamps))
	}

	value, _ = rl.records.Load("upload|1.2.3.4")
	if value.(*requestRecord) == stale {
		t.Error("removed record should be replaced in the map")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t)
	handler := rl.Limit("upload", 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/api/files/upload", nil)
		req.RemoteAddr = "203.0.113.1:5000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes[i] = rr.Code

		if rr.Code == http.StatusTooManyRequests && rr.Header().Get("Retry-After") != "3600" {
			t.Errorf("Retry-After = %q, want 3600", rr.Header().Get("Retry-After"))
		}
	}

	want := []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i+1, codes[i], want[i])
		}
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl, _ := newTestLimiter(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("download|9.9.9.9", 20) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 20 {
		t.Errorf("allowed = %d, want 20", allowed)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	rl.Stop()
	rl.Stop()
}
