package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/guildbank/cache"
	"github.com/kasuganosora/guildbank/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSec = config.SecurityConfig{JWTSecret: "secret", JWTTTLH: time.Hour}

func setupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewCache(cache.CacheConfig{})
	require.NoError(t, err)
	return c
}

func newProtectedRouter(c cache.Cache) *gin.Engine {
	r := gin.New()
	r.Use(Auth(testSec, c))
	r.GET("/protected", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"account_id": GetAccountID(ctx), "char_id": GetCharID(ctx)})
	})
	return r
}

func getProtected(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_Rejects(t *testing.T) {
	c := setupTestCache(t)
	r := newProtectedRouter(c)

	// valid JWT without a session in the cache
	orphan, err := GenerateToken(42, 5, "secret", time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":   "",
		"no bearer": "Token abc123",
		"invalid":   "Bearer notavalidtoken",
		"expired":   "Bearer " + orphan,
	} {
		assert.Equal(t, http.StatusUnauthorized, getProtected(r, header).Code, name)
	}
}

func TestAuth_SetsIDsInContext(t *testing.T) {
	c := setupTestCache(t)
	r := newProtectedRouter(c)

	token, err := GenerateToken(42, 5, "secret", time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), SessionKey(token), "5", time.Hour))

	w := getProtected(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"account_id":42,"char_id":5}`, w.Body.String())
}

func TestCheckSession(t *testing.T) {
	c := setupTestCache(t)
	token, err := GenerateToken(1, 2, "secret", time.Hour)
	require.NoError(t, err)

	_, ok := CheckSession(context.Background(), testSec, c, token)
	assert.False(t, ok)

	require.NoError(t, c.Set(context.Background(), SessionKey(token), "2", time.Hour))
	claims, ok := CheckSession(context.Background(), testSec, c, token)
	require.True(t, ok)
	assert.Equal(t, int64(2), claims.CharID)
}

func TestGetIDs_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, int64(0), GetAccountID(c))
	assert.Equal(t, int64(0), GetCharID(c))
}

func TestRecovery_CatchesPanic(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	r := gin.New()
	r.Use(TraceID())
	r.Use(Recovery(logger))
	r.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(TraceIDHeader, "t-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "t-1")
}

func TestLogger_PassesThrough(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	r := gin.New()
	r.Use(TraceID())
	r.Use(Logger(logger))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for path, want := range map[string]int{"/ping": http.StatusOK, "/fail": http.StatusInternalServerError} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code)
	}
}
