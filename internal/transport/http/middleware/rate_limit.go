package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/port"
	"github.com/SwagatoSarowar/Natours/internal/infra/logger"
)

// KeyFunc extracts the value a limit is scoped to, such as the client IP.
type KeyFunc func(*gin.Context) (string, bool)

// RateLimitRule is a sliding-window limit of Limit requests per Window.
type RateLimitRule struct {
	Name   string
	Limit  int
	Window time.Duration
	Key    KeyFunc
}

// RateLimiter enforces RateLimitRules against a shared attempt store.
// Store failures let the request through.
type RateLimiter struct {
	store  port.AttemptStore
	logger *zap.Logger
	now    func() time.Time
}

type windowState struct {
	allowed    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

func NewRateLimiter(store port.AttemptStore, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: log, now: time.Now}
}

// WithClock overrides the limiter clock.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ByClientIP scopes a rule to the caller's address.
func ByClientIP() KeyFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// Limit returns a handler enforcing every rule. The first exhausted rule
// rejects the request with 429 and a Retry-After header.
func (rl *RateLimiter) Limit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Key == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl == nil || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		var tightest *windowState

		for _, rule := range active {
			key, ok := rule.Key(c)
			if !ok || key == "" {
				continue
			}

			state, err := rl.check(c, rule, fmt.Sprintf("%s:%s", rule.Name, key), now)
			if err != nil {
				logger.WithContext(c.Request.Context(), rl.logger).Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("client_ip", logger.MaskIP(key)),
					zap.Error(err),
				)
				continue
			}

			if !state.allowed {
				writeLimitHeaders(c, state)
				rl.reject(c, state)
				return
			}
			if tightest == nil || state.remaining < tightest.remaining {
				snapshot := state
				tightest = &snapshot
			}
		}

		if tightest != nil {
			writeLimitHeaders(c, *tightest)
		}
		c.Next()
	}
}

func (rl *RateLimiter) check(c *gin.Context, rule RateLimitRule, key string, now time.Time) (windowState, error) {
	ctx := c.Request.Context()

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return windowState{}, err
	}
	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return windowState{}, err
	}
	oldest, found, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return windowState{}, err
	}

	state := windowState{allowed: true, limit: rule.Limit, reset: now.Add(rule.Window)}
	if found {
		state.reset = oldest.Add(rule.Window)
	}
	state.retryAfter = state.reset.Sub(now)
	if state.retryAfter < 0 {
		state.retryAfter = 0
	}

	if count >= rule.Limit {
		state.allowed = false
		return state, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return windowState{}, err
	}
	state.remaining = rule.Limit - count - 1
	return state, nil
}

func (rl *RateLimiter) reject(c *gin.Context, state windowState) {
	seconds := retrySeconds(state.retryAfter)
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
		Status:  statusLabel(http.StatusTooManyRequests),
		Message: fmt.Sprintf("Too many requests from this IP, please try again in %d seconds", seconds),
		TraceID: GetTraceID(c),
	})
}

func writeLimitHeaders(c *gin.Context, state windowState) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(state.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(state.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(state.reset.Unix(), 10))
	if !state.allowed {
		h.Set("Retry-After", strconv.Itoa(retrySeconds(state.retryAfter)))
	}
}

func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
