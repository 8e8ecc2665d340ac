package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"court-reservation-engine/internal/adapter/http/middleware"
	"court-reservation-engine/internal/adapter/storage/memory"
	redisStore "court-reservation-engine/internal/adapter/storage/redis"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/internal/core/ports/mocks"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func setupRateLimitRouter(limiter ports.RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}
	handlers := append(pre, middleware.RateLimiter(limiter, "test", rule, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/test", handlers...)
	return r
}

func doGet(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)
	return w
}

func newRedisLimiter(t *testing.T) *redisStore.RateLimitStore {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisStore.NewRateLimitStore(client)
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	backends := map[string]ports.RateLimiter{
		"redis": newRedisLimiter(t),
		"local": memory.NewRateLimiter(),
	}
	for name, limiter := range backends {
		t.Run(name, func(t *testing.T) {
			router := setupRateLimitRouter(limiter)

			for i := 0; i < 3; i++ {
				w := doGet(router)
				assert.Equal(t, 200, w.Code, "request %d should succeed", i+1)
				assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
				assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
				assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
			}

			w := doGet(router)
			assert.Equal(t, 429, w.Code)
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), "RATE_001")
		})
	}
}

func TestRateLimiter_KeysByMember(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := mocks.NewMockRateLimiter(ctrl)
	memberID := uuid.New()

	limiter.EXPECT().Allow(gomock.Any(), "member:"+memberID.String()+":test", int64(3), time.Minute).
		Return(&ports.RateLimitResult{Allowed: true, Limit: 3, Remaining: 2, ResetAt: time.Now().Unix() + 60}, nil)

	router := setupRateLimitRouter(limiter, func(c *gin.Context) {
		c.Set(middleware.CtxMemberID, memberID)
		c.Next()
	})

	assert.Equal(t, 200, doGet(router).Code)
}

func TestRateLimiter_DegradedModeAllows(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := mocks.NewMockRateLimiter(ctrl)
	limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))

	router := setupRateLimitRouter(limiter)
	assert.Equal(t, 200, doGet(router).Code)
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := middleware.DefaultRateLimitRules()
	for _, group := range []string{"holds", "bookings", "queries"} {
		rule, ok := rules[group]
		assert.True(t, ok, group)
		assert.Positive(t, rule.Limit)
		assert.Equal(t, time.Minute, rule.Window)
	}
}
