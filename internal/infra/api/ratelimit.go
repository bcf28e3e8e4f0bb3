package api

import (
	"net/http"
	"time"

	rds "essaygenius/internal/infra/redis"
)

// Per-user request limits per minute. Submissions are expensive and tight;
// status polls are cheap and generous.
const (
	submitLimitPerMinute = 5
	statusLimitPerMinute = 200
)

// RateLimit enforces per-user fixed-window limits backed by Redis. Redis
// errors fail open.
type RateLimit struct {
	limiter *rds.RateLimiter
}

func NewRateLimit(limiter *rds.RateLimiter) *RateLimit {
	return &RateLimit{limiter: limiter}
}

func (rl *RateLimit) Limit(route string, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := userID(r)
			if uid == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, err := rl.limiter.Allow(r.Context(), rds.UserRouteKey(uid, route), perMinute, time.Minute)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.Header().Set("Retry-After", "60")
				writeDetail(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
