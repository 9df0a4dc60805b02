// middleware/ratelimit.go
// Rate limiter token-bucket per proses untuk endpoint fitting (CPU-heavy)

package middleware

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// RateLimit menolak request dengan 429 bila bucket habis. rps <= 0 mematikan limiter.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(rps)))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(rps float64) int {
	if rps >= 1 {
		return 1
	}
	return int(1/rps + 0.5)
}
