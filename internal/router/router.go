package router

import (
	"net/http"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/config"
	"github.com/classbeacon/classbeacon-backend/internal/handler"
	"github.com/classbeacon/classbeacon-backend/internal/middleware"
	"github.com/classbeacon/classbeacon-backend/internal/response"
	"github.com/classbeacon/classbeacon-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Class      *handler.ClassHandler
	Attendance *handler.AttendanceHandler
	RosterWS   *handler.RosterWSHandler
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

	// Request counters and latencies for every route.
	router.Use(middleware.Metrics())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.GetProfile)
	}

	// ─── 2. Teacher Group (JWT, teacher role) ──────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.POST("/classes", handlers.Class.CreateClass)
		teacherAPI.GET("/classes", handlers.Class.ListTeacherClasses)
		teacherAPI.GET("/classes/:id", handlers.Class.GetClass)
		teacherAPI.PUT("/classes/:id", handlers.Class.RenameClass)
		teacherAPI.DELETE("/classes/:id", handlers.Class.DeleteClass)
		teacherAPI.GET("/classes/:id/roster", handlers.Class.GetRoster)

		teacherAPI.POST("/classes/:id/codes", handlers.Attendance.IssueCode)
		teacherAPI.GET("/classes/:id/codes", handlers.Attendance.ListActiveCodes)
		teacherAPI.GET("/classes/:id/attendance", handlers.Attendance.ListClassAttendance)
		teacherAPI.POST("/classes/:id/attendance/close", handlers.Attendance.CloseOutDay)
	}

	// ─── 3. Student Group (JWT, student role) ──────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.POST("/classes/join", handlers.Class.JoinClass)
		studentAPI.GET("/classes", handlers.Class.ListStudentClasses)
		studentAPI.POST("/classes/:id/redeem", handlers.Attendance.Redeem)
		studentAPI.GET("/attendance", handlers.Attendance.ListStudentAttendance)
	}

	// ─── 4. WebSocket Group (Teacher WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireTeacherWSAuth(authService))
	{
		ws.GET("/teacher/classes/:id/roster", handlers.RosterWS.RosterStream)
	}

	return router
}
