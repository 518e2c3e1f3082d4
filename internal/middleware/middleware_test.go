package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/internship-attendance-api/internal/models"
	"github.com/noah-isme/internship-attendance-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func serve(router *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	router.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	auth := service.NewAuthService(service.AuthConfig{AccessTokenSecret: "secret"})
	router := gin.New()
	router.GET("/me", JWT(auth), func(c *gin.Context) {
		claims, ok := Claims(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.UserID)
	})

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.JWTClaims{
		UserID:           "usr-1",
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	w := serve(router, http.MethodGet, "/me", http.Header{"Authorization": {"Bearer " + signed}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "usr-1", w.Body.String())

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer nope"} {
		w = serve(router, http.MethodGet, "/me", http.Header{"Authorization": {header}})
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRBAC(t *testing.T) {
	student := &models.JWTClaims{UserID: "usr-2", Role: models.RoleStudent, StudentID: "stu-1"}
	admin := &models.JWTClaims{UserID: "usr-1", Role: models.RoleAdmin}
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	cases := []struct {
		name   string
		claims *models.JWTClaims
		target string
		want   int
	}{
		{"admin", admin, "/students/stu-9", http.StatusNoContent},
		{"self", student, "/students/stu-1", http.StatusNoContent},
		{"other student", student, "/students/stu-9", http.StatusForbidden},
		{"anonymous", nil, "/students/stu-1", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/students/:id", withClaims(tc.claims), RBAC("id", models.RoleAdmin), ok)
			assert.Equal(t, tc.want, serve(router, http.MethodGet, tc.target, nil).Code)
		})
	}

	router := gin.New()
	router.GET("/schedules/:id", withClaims(student), RequireRoles(models.RoleAdmin), ok)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/schedules/stu-1", nil).Code)
}

type counterStub struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (s *counterStub) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, 0, s.err
	}
	s.counts[key]++
	return s.counts[key], 1500 * time.Millisecond, nil
}

func TestRateLimit(t *testing.T) {
	counter := &counterStub{counts: make(map[string]int64)}
	router := gin.New()
	router.POST("/scan", RateLimit(counter, "scan", 2, time.Minute, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/scan", nil).Code)
	w := serve(router, http.MethodPost, "/scan", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = serve(router, http.MethodPost, "/scan", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	counter.err = errors.New("redis down")
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/scan", nil).Code)
}

func TestAuditLogsSuccessOnly(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	admin := &models.JWTClaims{UserID: "usr-1", Role: models.RoleAdmin}

	router := gin.New()
	router.PUT("/leave/:id/review", withClaims(admin), Audit(log, "review", "leave_request"), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.PUT("/fail/:id", withClaims(admin), Audit(log, "review", "leave_request"), func(c *gin.Context) { c.Status(http.StatusConflict) })

	serve(router, http.MethodPut, "/leave/lv-1/review", nil)
	serve(router, http.MethodPut, "/fail/lv-1", nil)

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "lv-1", fields["resource_id"])
	assert.Equal(t, "usr-1", fields["user_id"])
}

func TestMetricsMiddlewareLabelsUnmatched(t *testing.T) {
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/ok", nil)
	serve(router, http.MethodGet, "/random/scanner", nil)

	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestResponseMeta(t *testing.T) {
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetMeta(c, "cache_hit", true)
		meta := ExtractMeta(c)
		assert.Equal(t, true, meta["cache_hit"])
		assert.Contains(t, meta, processingTimeMS)
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodGet, "/", nil).Code)
}
