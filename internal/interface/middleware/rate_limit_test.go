package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// withIdentity fakes Auth for limiter tests.
func withIdentity(id *entity.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != nil {
			c.Set(ctxIdentityKey, *id)
		}
		c.Next()
	}
}

func hit(r http.Handler, method string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, "/x", nil))
	return w
}

func TestRateLimit_BlocksAfterMax(t *testing.T) {
	_, rdb := newRedis(t)
	r := gin.New()
	r.GET("/x", RateLimit(rdb, 2, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := hit(r, http.MethodGet)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, hit(r, http.MethodGet).Code)

	w = hit(r, http.MethodGet)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, MsgRateLimited, messageOf(t, w))
}

func TestRateLimit_WindowExpires(t *testing.T) {
	mr, rdb := newRedis(t)
	r := gin.New()
	r.GET("/x", RateLimit(rdb, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, hit(r, http.MethodGet).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(r, http.MethodGet).Code)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, hit(r, http.MethodGet).Code)
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	mr, rdb := newRedis(t)
	r := gin.New()
	r.GET("/x", RateLimit(rdb, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	mr.Close()
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, http.MethodGet).Code)
	}
}

func TestRateLimit_NilRedisIsNoop(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(nil, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, http.MethodGet).Code)
	}
}

func TestRateLimit_AllowBypass(t *testing.T) {
	_, rdb := newRedis(t)
	r := gin.New()
	r.GET("/x", RateLimit(rdb, 1, time.Minute, KeyByIP(), AllowPaths("/x")), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, http.MethodGet).Code)
	}
}

func TestRoleRateLimit_Tiers(t *testing.T) {
	tests := []struct {
		name string
		id   *entity.Identity
		max  int
	}{
		{"guest", nil, 5},
		{"user", &entity.Identity{ID: 1, Role: entity.RoleUser}, 10},
		{"admin", &entity.Identity{ID: 2, Role: entity.RoleAdmin}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rdb := newRedis(t)
			r := gin.New()
			r.GET("/x", withIdentity(tt.id), RoleRateLimit(rdb, DefaultTiers(), time.Minute, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

			for i := 0; i < tt.max; i++ {
				require.Equal(t, http.StatusOK, hit(r, http.MethodGet).Code, "request %d", i+1)
			}
			w := hit(r, http.MethodGet)
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		})
	}
}

func TestRoleRateLimit_SeparateBucketsPerAccount(t *testing.T) {
	_, rdb := newRedis(t)
	tiers := Tiers{Guest: 1, User: 1, Admin: 1}
	alice := &entity.Identity{ID: 1, Role: entity.RoleUser}
	bob := &entity.Identity{ID: 2, Role: entity.RoleUser}

	r := gin.New()
	r.GET("/alice", withIdentity(alice), RoleRateLimit(rdb, tiers, time.Minute, nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bob", withIdentity(bob), RoleRateLimit(rdb, tiers, time.Minute, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, get("/alice"))
	assert.Equal(t, http.StatusTooManyRequests, get("/alice"))
	assert.Equal(t, http.StatusOK, get("/bob"))
}

func TestRateLimit_SkipsOptions(t *testing.T) {
	_, rdb := newRedis(t)
	r := gin.New()
	r.Handle(http.MethodOptions, "/x", RateLimit(rdb, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, hit(r, http.MethodOptions).Code)
	}
}
