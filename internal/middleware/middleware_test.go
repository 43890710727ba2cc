package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/middleware"
	"github.com/stemsi/quizlr/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user.Valid {
			c.String(http.StatusOK, user.UUID.String())
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	r.GET("/", handlers...)
	return r
}

func do(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret", JWTExpiry: time.Hour}
	auth := service.NewAuthService(cfg, nil)

	learnerID, authorID := uuid.New(), uuid.New()
	learner, err := auth.IssueToken(learnerID, service.RoleLearner)
	require.NoError(t, err)
	author, err := auth.IssueToken(authorID, service.RoleAuthor)
	require.NoError(t, err)
	expired, err := service.NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: -time.Minute}, nil).
		IssueToken(learnerID, service.RoleLearner)
	require.NoError(t, err)

	t.Run("require", func(t *testing.T) {
		r := newRouter(middleware.RequireJWT(auth))
		assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
		assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)

		w := do(r, expired)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")

		w = do(r, learner)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, learnerID.String(), w.Body.String())
	})

	t.Run("author", func(t *testing.T) {
		r := newRouter(middleware.RequireAuthor(auth))
		w := do(r, learner)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "AUTHOR_ACCESS_ONLY")
		assert.Equal(t, http.StatusOK, do(r, author).Code)
	})

	t.Run("optional", func(t *testing.T) {
		r := newRouter(middleware.OptionalJWT(auth))
		w := do(r, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())
		assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code, "a bad token is not silently ignored")
		assert.Equal(t, authorID.String(), do(r, author).Body.String())
	})
}

func TestRateLimiter(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Hour}, nil)
	rl := middleware.NewRateLimiter(2, time.Hour)
	r := newRouter(middleware.OptionalJWT(auth), rl.Middleware())

	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "").Code)

	// an authenticated user has a bucket of their own
	token, err := auth.IssueToken(uuid.New(), service.RoleLearner)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(r, token).Code)
}

func TestCacheHeaders(t *testing.T) {
	assert.Equal(t, "private, max-age=60", do(newRouter(middleware.CacheControl(60)), "").Header().Get("Cache-Control"))
	assert.Equal(t, "no-store", do(newRouter(middleware.NoStore()), "").Header().Get("Cache-Control"))
}
