// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"simpleblog/internal/metrics"
)

// slidingWindow trims a per-client sorted set of request times (ms) to the
// window, then admits the request if fewer than limit remain. It returns
// {1, 0} when admitted and {0, retryAfterMs} when not.
var slidingWindow = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  return {1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {0, tonumber(oldest[2]) + window - now}
`)

// RateLimiter limits requests per client IP over a sliding window. Counters
// live in Valkey so every replica shares them.
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter creates a limiter that allows limit requests per window for
// each client. name separates the counters of different limiters.
func NewRateLimiter(client *redis.Client, name string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: "ratelimit:" + name + ":",
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// allow records a request for key if it is within the limit. When it is
// not, retryAfter is the time until the oldest request leaves the window.
// Valkey errors admit the request.
func (rl *RateLimiter) allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration) {
	now := rl.now().UnixMilli()
	res, err := slidingWindow.Run(ctx, rl.client, []string{rl.prefix + key},
		now, rl.window.Milliseconds(), rl.limit, strconv.FormatInt(now, 10)+"-"+uuid.NewString(),
	).Int64Slice()
	if err != nil || len(res) != 2 {
		metrics.RedisErrors.WithLabelValues("ratelimit").Inc()
		slog.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
		return true, 0
	}
	if res[0] == 1 {
		return true, 0
	}
	return false, time.Duration(res[1]) * time.Millisecond
}

// Middleware returns an HTTP middleware that rate-limits by client IP.
// Rejected requests get 429 with a Retry-After header in whole seconds.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := rl.allow(r.Context(), clientIP(r))
		if !ok {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "Too Many Attempts.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the connection peer address. Forwarding headers are
// ignored here; behind a trusted proxy the router rewrites RemoteAddr first.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
