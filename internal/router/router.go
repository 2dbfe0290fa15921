package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/talentsift/recruitex-backend/internal/config"
	"github.com/talentsift/recruitex-backend/internal/handler"
	"github.com/talentsift/recruitex-backend/internal/middleware"
	"github.com/talentsift/recruitex-backend/internal/response"
	"github.com/talentsift/recruitex-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Profile  *handler.ProfileHandler
	Exam     *handler.ExamHandler
	Activity *handler.ActivityHandler
	Admin    *handler.AdminHandler
	Role     *handler.RoleHandler
	Question *handler.QuestionHandler
	Monitor  *handler.MonitorHandler
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/signup", handlers.Auth.Signup)
		auth.POST("/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/me", middleware.RequireStudentJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Candidate Group (JWT + Single Device) ──────────────────────
	candidateAPI := router.Group("/api/v1")
	candidateAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		candidateAPI.GET("/roles", handlers.Profile.ListOpenRoles)
		candidateAPI.POST("/profile", handlers.Profile.SaveProfile)
		candidateAPI.GET("/profile", handlers.Profile.GetProfile)

		candidateAPI.POST("/exam/start", handlers.Exam.StartExam)
		candidateAPI.GET("/exam/session", handlers.Exam.GetSession)
		candidateAPI.POST("/exam/next-section", handlers.Exam.NextSection)
		candidateAPI.POST("/exam/submit", handlers.Exam.SubmitExam)
		candidateAPI.PUT("/exam/answers", handlers.Exam.SaveAnswer)
		candidateAPI.POST("/exam/question-activity", handlers.Exam.QuestionActivity)

		candidateAPI.POST("/exam/events", handlers.Activity.LogEvent)
		candidateAPI.POST("/exam/signals", handlers.Activity.Signal)
	}

	// ─── 3. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Role catalog
		adminAPI.GET("/roles", handlers.Role.ListRoles)
		adminAPI.POST("/roles", handlers.Role.CreateRole)
		adminAPI.PUT("/roles/:id", handlers.Role.UpdateRole)
		adminAPI.DELETE("/roles/:id", handlers.Role.DeleteRole)

		// Question bank
		adminAPI.GET("/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/questions", handlers.Question.CreateQuestion)
		adminAPI.GET("/questions/:id", handlers.Question.GetQuestion)
		adminAPI.PUT("/questions/:id", handlers.Question.UpdateQuestion)
		adminAPI.DELETE("/questions/:id", handlers.Question.DeleteQuestion)

		// Submission review
		adminAPI.GET("/submissions", handlers.Admin.ListSubmissions)
		adminAPI.GET("/submissions/:id", handlers.Admin.GetEvaluation)
		adminAPI.GET("/submissions/:id/logs", handlers.Admin.ListActivityLogs)
		adminAPI.POST("/submissions/:id/scores", handlers.Admin.SaveScores)

		// Candidate login session reset
		adminAPI.POST("/students/:id/reset-session", handlers.Auth.ResetStudentSession)

		// Live monitor
		adminAPI.GET("/monitor", handlers.Monitor.MonitorSSE)
	}

	return router
}
