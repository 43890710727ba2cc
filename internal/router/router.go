package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/handler"
	"github.com/stemsi/quizlr/internal/middleware"
	"github.com/stemsi/quizlr/internal/response"
	"github.com/stemsi/quizlr/internal/service"
)

// quizCacheSeconds is how long clients may cache quiz reads.
const quizCacheSeconds = 30

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Quiz    *handler.QuizHandler
	Session *handler.SessionHandler
	Score   *handler.ScoreHandler
	Monitor *handler.MonitorHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Runs after the auth middleware of each group so users get their own bucket.
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.RequireJWT(authService), limiter.Middleware())
	{
		auth.GET("/me", handlers.Auth.Me)
		auth.POST("/logout", handlers.Auth.Logout)
	}

	// ─── 2. Learner Group (token optional) ─────────────────────────────
	learner := router.Group("/api/v1")
	learner.Use(middleware.OptionalJWT(authService), limiter.Middleware())
	{
		learner.GET("/quizzes", middleware.CacheControl(quizCacheSeconds), handlers.Quiz.ListQuizzes)
		learner.GET("/quizzes/:quiz_id", middleware.CacheControl(quizCacheSeconds), handlers.Quiz.GetQuiz)
		learner.POST("/quizzes/:quiz_id/sessions", handlers.Session.CreateSession)

		sessions := learner.Group("/sessions/:session_id")
		sessions.Use(middleware.NoStore())
		{
			sessions.GET("", handlers.Session.GetSession)
			sessions.POST("/start", handlers.Session.StartSession)
			sessions.POST("/pause", handlers.Session.PauseSession)
			sessions.POST("/resume", handlers.Session.ResumeSession)
			sessions.POST("/complete", handlers.Session.CompleteSession)
			sessions.POST("/abandon", handlers.Session.AbandonSession)
			sessions.POST("/answers", handlers.Session.SubmitAnswer)
			sessions.POST("/skip", handlers.Session.SkipQuestion)
			sessions.GET("/current", handlers.Session.CurrentQuestion)
			sessions.POST("/next", handlers.Session.NextQuestion)
			sessions.POST("/previous", handlers.Session.PreviousQuestion)
			sessions.POST("/goto", handlers.Session.GotoQuestion)
			sessions.POST("/score", handlers.Score.ScoreSession)
			sessions.GET("/scores", handlers.Score.ListScores)
		}
	}

	// ─── 3. Me Group (JWT) ─────────────────────────────────────────────
	me := router.Group("/api/v1/me")
	me.Use(middleware.RequireJWT(authService), limiter.Middleware(), middleware.NoStore())
	{
		me.GET("/sessions", handlers.Session.ListMySessions)
	}

	// ─── 4. Author Group (JWT, author role) ────────────────────────────
	author := router.Group("/api/v1/quizzes")
	author.Use(middleware.RequireAuthor(authService), limiter.Middleware())
	{
		author.POST("", handlers.Quiz.CreateQuiz)
		author.POST("/generate", handlers.Quiz.GenerateQuiz)
		author.DELETE("/:quiz_id", handlers.Quiz.DeleteQuiz)
		author.GET("/:quiz_id/stats", handlers.Monitor.Snapshot)
		author.GET("/:quiz_id/monitor", handlers.Monitor.MonitorQuizSSE)
	}

	// ─── 5. WebSocket Group (token via ?token=) ────────────────────────
	ws := router.Group("/ws")
	ws.Use(middleware.OptionalJWT(authService))
	{
		ws.GET("/sessions/:session_id", handlers.WS.SessionStream)
	}

	return router
}
