package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

const MsgRateLimited = "Rate limit exceeded. Please try again later."

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath limits by client IP and route pattern
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyByIdentity limits authenticated callers per account and everyone else per IP.
func KeyByIdentity() KeyFunc {
	return func(c *gin.Context) string {
		id, ok := IdentityFrom(c)
		if !ok {
			return "rl:guest:ip:" + ipFromCtx(c)
		}
		return "rl:user:" + strconv.FormatInt(id.ID, 10)
	}
}

// Tiers is the per-window request budget for each caller class.
type Tiers struct {
	Guest int
	User  int
	Admin int
}

func DefaultTiers() Tiers {
	return Tiers{Guest: 5, User: 10, Admin: 20}
}

// For picks the budget for the identity on c. No identity means guest.
func (t Tiers) For(c *gin.Context) int {
	id, ok := IdentityFrom(c)
	if !ok {
		return t.Guest
	}
	switch id.Role {
	case entity.RoleAdmin:
		return t.Admin
	case entity.RoleUser:
		return t.User
	}
	return t.Guest
}

// Lua script: atomic INCR + set PEXPIRE on first hit
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

type AllowFunc func(*gin.Context) bool // return true for bypass limit

// RateLimit with:
// - atomic redis (lua)
// - standard headers (limit/remaining/reset)
// - optional allowlist bypass & method skip
func RateLimit(rdb *redis.Client, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if max <= 0 {
		return passThrough
	}
	return limiter(rdb, func(*gin.Context) int { return max }, window, keyFn, allow)
}

// RoleRateLimit applies Tiers keyed by identity. It must run after Auth to
// see the caller's role.
func RoleRateLimit(rdb *redis.Client, tiers Tiers, window time.Duration, allow AllowFunc) gin.HandlerFunc {
	return limiter(rdb, tiers.For, window, KeyByIdentity(), allow)
}

func passThrough(c *gin.Context) { c.Next() }

func limiter(rdb *redis.Client, maxFn func(*gin.Context) int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || window <= 0 || keyFn == nil {
		return passThrough
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}
		max := maxFn(c)
		if max <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := keyFn(c)

		countI, err := incrExpireScript.Run(ctx, rdb, []string{key}, window.Milliseconds()).Result()
		if err != nil {
			// fail open
			c.Next()
			return
		}
		count := toInt(countI)

		ttl, _ := rdb.TTL(ctx, key).Result()
		resetSec := 0
		if ttl > 0 {
			resetSec = int(ttl.Seconds())
		}

		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		// https://datatracker.ietf.org/doc/html/rfc6585#section-4
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > max {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			abort(c, http.StatusTooManyRequests, MsgRateLimited)
			return
		}
		c.Next()
	}
}

func toInt(v interface{}) int {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int:
		return x
	case string:
		i, _ := strconv.Atoi(x)
		return i
	}
	return 0
}
