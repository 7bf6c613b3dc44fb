package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keithlinneman/socialblog/internal/httpmw"
)

// newTestLimiter uses a small burst and a short TTL; the cleanup goroutine
// stops when the test ends.
func newTestLimiter(t *testing.T, opts ...Option) *IPLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, append([]Option{WithRate(10, 5), WithTTL(100 * time.Millisecond)}, opts...)...)
}

func (l *IPLimiter) tracked(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.visitors[ip]
	return ok
}

func TestDefaults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := New(ctx)

	if l.perSecond != 10 || l.burst != 30 || l.ttl != 5*time.Minute || l.maxVisitors != 100000 {
		t.Fatalf("defaults = %v/s burst %d ttl %v max %d", l.perSecond, l.burst, l.ttl, l.maxVisitors)
	}
}

func TestAllow_BurstPerIP(t *testing.T) {
	l := newTestLimiter(t, WithRate(1, 3))

	for i := 0; i < 3; i++ {
		if !l.allow("10.0.0.1") {
			t.Fatalf("request %d should be within the burst", i+1)
		}
	}
	if l.allow("10.0.0.1") {
		t.Fatal("burst exhausted, request should be denied")
	}
	if !l.allow("10.0.0.2") {
		t.Fatal("another IP has its own bucket")
	}
}

func TestAllow_RefillAfterTime(t *testing.T) {
	l := newTestLimiter(t, WithRate(100, 1))

	l.allow("10.0.0.1")
	if l.allow("10.0.0.1") {
		t.Fatal("should be denied with an empty bucket")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.allow("10.0.0.1") {
		t.Fatal("should be allowed after refill")
	}
}

func TestDeniedHooks(t *testing.T) {
	var mu sync.Mutex
	first := map[string]int{}
	var denied atomic.Int32

	l := newTestLimiter(t,
		WithRate(1, 1),
		WithOnFirstDenied(func(ip string) {
			mu.Lock()
			first[ip]++
			mu.Unlock()
		}),
		WithOnDenied(func(string) { denied.Add(1) }),
	)

	for i := 0; i < 4; i++ {
		l.allow("10.0.0.1")
	}
	l.allow("10.0.0.2")
	l.allow("10.0.0.2")

	mu.Lock()
	defer mu.Unlock()
	if first["10.0.0.1"] != 1 || first["10.0.0.2"] != 1 {
		t.Fatalf("OnFirstDenied per IP = %v, want once each", first)
	}
	if got := denied.Load(); got != 4 {
		t.Fatalf("OnDenied = %d, want 4", got)
	}
}

func TestNilHooks_NoPanic(t *testing.T) {
	l := newTestLimiter(t, WithRate(1, 1), WithMaxVisitors(1))
	l.allow("10.0.0.1")
	l.allow("10.0.0.1")
	l.allow("10.0.0.2")
}

func TestCleanup(t *testing.T) {
	var first atomic.Int32
	l := newTestLimiter(t,
		WithRate(1, 1),
		WithTTL(50*time.Millisecond),
		WithOnFirstDenied(func(string) { first.Add(1) }),
	)

	l.allow("10.0.0.1")
	l.allow("10.0.0.1")
	if !l.tracked("10.0.0.1") {
		t.Fatal("visitor should exist right after a request")
	}

	time.Sleep(120 * time.Millisecond)
	if l.tracked("10.0.0.1") {
		t.Fatal("idle visitor should be evicted after the TTL")
	}

	// a fresh entry logs its first denial again
	l.allow("10.0.0.1")
	l.allow("10.0.0.1")
	if got := first.Load(); got != 2 {
		t.Fatalf("OnFirstDenied = %d after re-entry, want 2", got)
	}
}

func TestCleanup_ActiveVisitorKept(t *testing.T) {
	l := newTestLimiter(t, WithRate(100, 100), WithTTL(80*time.Millisecond))

	for i := 0; i < 5; i++ {
		l.allow("10.0.0.1")
		time.Sleep(30 * time.Millisecond)
	}
	if !l.tracked("10.0.0.1") {
		t.Fatal("active visitor should not be evicted")
	}
}

func TestCleanup_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(ctx, WithTTL(10*time.Millisecond))
	cancel()
	time.Sleep(30 * time.Millisecond)

	l.allow("10.0.0.2")
	time.Sleep(30 * time.Millisecond)
	if !l.tracked("10.0.0.2") {
		t.Fatal("nothing should evict once the context is done")
	}
}

func TestMaxVisitors(t *testing.T) {
	var capacity atomic.Int32
	l := newTestLimiter(t,
		WithRate(1, 1),
		WithMaxVisitors(2),
		WithTTL(50*time.Millisecond),
		WithOnCapacity(func() { capacity.Add(1) }),
	)

	l.allow("10.0.0.1")
	l.allow("10.0.0.2")
	if l.allow("10.0.0.3") || l.allow("10.0.0.4") {
		t.Fatal("new IPs should be rejected at capacity")
	}
	if got := capacity.Load(); got != 1 {
		t.Fatalf("OnCapacity = %d, want 1 while the map stays full", got)
	}
	// known visitors are still rate limited, not capacity limited
	if l.allow("10.0.0.1") {
		t.Fatal("existing visitor's bucket is empty")
	}

	time.Sleep(120 * time.Millisecond)
	if !l.allow("10.0.0.3") {
		t.Fatal("eviction should free capacity")
	}
}

func TestMaxVisitors_ZeroDisablesLimit(t *testing.T) {
	l := newTestLimiter(t, WithRate(100, 100), WithMaxVisitors(0))
	for i := 0; i < 100; i++ {
		if ip := fmt.Sprintf("10.0.%d.%d", i/256, i%256); !l.allow(ip) {
			t.Fatalf("%s rejected with no visitor cap", ip)
		}
	}
}

func TestMaxVisitors_ConcurrentAccess(t *testing.T) {
	l := newTestLimiter(t, WithRate(100, 100), WithMaxVisitors(50))

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if l.allow(fmt.Sprintf("10.0.%d.%d", n/256, n%256)) {
				allowed.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := allowed.Load(); got != 50 {
		t.Fatalf("allowed = %d, want 50", got)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.visitors) != 50 {
		t.Fatalf("tracked = %d, want 50", len(l.visitors))
	}
}

// Middleware. The client IP is put in the context directly so these only
// cover the limiter's HTTP behavior.

func serveFrom(h http.Handler, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/posts/hello-world", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r.WithContext(httpmw.WithClientIP(r.Context(), ip)))
	return w
}

func TestMiddleware_Returns429(t *testing.T) {
	l := newTestLimiter(t, WithRate(1, 2))
	var reached atomic.Int32
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached.Add(1)
	}))

	for i := 0; i < 2; i++ {
		if w := serveFrom(h, "203.0.113.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i+1, w.Code)
		}
	}
	w := serveFrom(h, "203.0.113.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("request 3: got %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Body.String(); got != `{"error":"too many requests"}` {
		t.Errorf("body = %q", got)
	}
	if got := reached.Load(); got != 2 {
		t.Fatalf("handler reached %d times, want 2", got)
	}
	if w := serveFrom(h, "203.0.113.2"); w.Code != http.StatusOK {
		t.Fatalf("other IP: got %d, want 200", w.Code)
	}
}

func TestMiddleware_EmptyClientIPSharesBucket(t *testing.T) {
	l := newTestLimiter(t, WithRate(1, 1))
	h := l.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	serveFrom(h, "")
	if w := serveFrom(h, ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request without an IP: got %d, want 429", w.Code)
	}
}

func TestMiddleware_CapacityRejectsNewIP(t *testing.T) {
	l := newTestLimiter(t, WithRate(100, 100), WithMaxVisitors(2))
	h := l.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	serveFrom(h, "203.0.113.1")
	serveFrom(h, "203.0.113.2")
	if w := serveFrom(h, "203.0.113.3"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("new IP at capacity: got %d, want 429", w.Code)
	}
	if w := serveFrom(h, "203.0.113.1"); w.Code != http.StatusOK {
		t.Fatalf("known IP at capacity: got %d, want 200", w.Code)
	}
}
