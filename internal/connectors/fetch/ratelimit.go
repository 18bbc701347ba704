package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum interval between the completion of one
// live request and the start of the next. One limiter is shared by every
// fetch in a process; it is safe for concurrent use. The first request is
// never delayed.
//
// Callers pair every successful Wait with a Done once the response has been
// read. Done restarts the bucket empty, so the next token only becomes
// available a full interval after completion.
type RateLimiter struct {
	mu     sync.Mutex
	limit  rate.Limit
	bucket *rate.Limiter
	now    func() time.Time
}

// NewRateLimiter allows one request per interval. A non-positive interval
// disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimiter{limit: limit, bucket: rate.NewLimiter(limit, 1), now: time.Now}
}

// Wait blocks until the next request may be sent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	b := r.bucket
	r.mu.Unlock()
	return b.Wait(ctx)
}

// Done records that a request finished, successfully or not.
func (r *RateLimiter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := rate.NewLimiter(r.limit, 1)
	b.AllowN(r.now(), 1)
	r.bucket = b
}
