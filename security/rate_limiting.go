package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// MatchRateLimit throttles matchmaking endpoints per participant (falling
// back to the client IP). Counts live in Redis with a rolling window.
func (r *RateLimiter) MatchRateLimit(maxPerMinute int64) *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "matchRateLimit",
		Func: func(e *core.RequestEvent) error {
			identity := e.Request.Header.Get("X-User-Id")
			if identity != "" {
				identity = "user:" + identity
			} else {
				identity = "ip:" + e.RealIP()
			}

			key := fmt.Sprintf("ratelimit:match:%s", identity)
			ctx := e.Request.Context()

			count, err := r.redis.Incr(ctx, key).Result()
			if err != nil {
				// Redis trouble should not take the endpoint down.
				return e.Next()
			}
			if count == 1 {
				r.redis.Expire(ctx, key, time.Minute)
			}
			if count > maxPerMinute {
				return apis.NewApiError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
			}

			return e.Next()
		},
	}
}

// AntiBot rejects requests from obvious automation before they reach the
// matchmaking queue.
func (r *RateLimiter) AntiBot() *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "antiBot",
		Func: func(e *core.RequestEvent) error {
			userAgent := e.Request.Header.Get("User-Agent")
			if isSuspiciousUserAgent(userAgent) {
				return apis.NewForbiddenError("Access denied", nil)
			}

			ip := e.RealIP()
			key := fmt.Sprintf("antibot:%s", ip)
			ctx := e.Request.Context()

			count, err := r.redis.Incr(ctx, key).Result()
			if err == nil {
				if count == 1 {
					r.redis.Expire(ctx, key, time.Minute)
				}
				if count > 60 {
					return apis.NewApiError(http.StatusTooManyRequests, "Too many requests", nil)
				}
			}

			return e.Next()
		},
	}
}

func isSuspiciousUserAgent(userAgent string) bool {
	if userAgent == "" {
		return true
	}

	suspicious := []string{"bot", "crawler", "spider", "scraper", "curl", "wget", "python"}
	lowered := strings.ToLower(userAgent)
	for _, pattern := range suspicious {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}
