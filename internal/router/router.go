package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/config"
	"github.com/stemsi/classroom-backend/internal/handler"
	"github.com/stemsi/classroom-backend/internal/middleware"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/response"
)

// brotliQuality trades ratio for CPU on JSON payloads.
const brotliQuality = 5

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Class      *handler.ClassHandler
	Enrollment *handler.EnrollmentHandler
	Bulk       *handler.BulkHandler
	WS         *handler.WSHandler
	System     *handler.SystemHandler
}

// Deps are the non-handler collaborators of the middleware chain.
type Deps struct {
	Auth        middleware.TokenValidator
	BulkCounter middleware.WindowCounter
	Log         zerolog.Logger
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background goroutines owned by middlewares.
func SetupRouter(ctx context.Context, deps Deps, handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli(brotliQuality))

	router.GET("/health", handlers.System.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(ctx, 10, time.Minute)
	auth := router.Group("/api/v1/auth/teacher")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.TeacherLogin)

		session := auth.Group("")
		session.Use(middleware.RequireJWT(deps.Auth), middleware.RequireRole(model.RoleTeacher))
		{
			session.POST("/logout", handlers.Auth.TeacherLogout)
			session.GET("/me", handlers.Auth.GetTeacherProfile)
		}
	}

	// ─── 2. Class Group (JWT + Teacher Role) ───────────────────────────
	bulkLimit := middleware.BulkRateLimit(deps.BulkCounter, cfg.BulkRateLimit, deps.Log)

	classes := router.Group("/api/v1/classes")
	classes.Use(
		middleware.RequireJWT(deps.Auth),
		middleware.RequireRole(model.RoleTeacher),
		middleware.NoStore(),
	)
	{
		classes.GET("", handlers.Class.ListClasses)
		classes.POST("", handlers.Class.CreateClass)

		bulk := classes.Group("/bulk")
		bulk.Use(bulkLimit)
		{
			bulk.POST("/update", handlers.Bulk.BulkUpdate)
			bulk.POST("/delete", handlers.Bulk.BulkDelete)
			bulk.POST("/restore", handlers.Bulk.BulkRestore)
			bulk.POST("/assign-teacher", handlers.Bulk.BulkAssignTeacher)
			bulk.POST("/summary", handlers.Bulk.Summary)
		}

		classes.GET("/:id", handlers.Class.GetClass)
		classes.PUT("/:id", handlers.Class.UpdateClass)
		classes.DELETE("/:id", handlers.Class.DeleteClass)
		classes.POST("/:id/restore", handlers.Class.RestoreClass)
		classes.GET("/:id/audit", handlers.Class.GetAuditHistory)

		classes.POST("/:id/teachers", handlers.Class.AssignTeacher)
		classes.DELETE("/:id/teachers/:teacher_id", handlers.Class.RemoveTeacher)

		students := classes.Group("/:id/students")
		{
			students.GET("", handlers.Enrollment.ListStudents)
			students.GET("/available", handlers.Enrollment.ListAvailableStudents)
			students.POST("", handlers.Enrollment.EnrollStudent)
			students.POST("/bulk", bulkLimit, handlers.Enrollment.BulkEnrollStudents)
			students.POST("/bulk-remove", bulkLimit, handlers.Enrollment.BulkRemoveStudents)
			students.POST("/import", bulkLimit, handlers.Enrollment.ImportRoster)
			students.DELETE("/:student_id", handlers.Enrollment.RemoveStudent)
		}
	}

	// ─── 3. WebSocket Group (Token in Query) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(deps.Auth), middleware.RequireRole(model.RoleTeacher))
	{
		ws.GET("/classes/:id/roster", handlers.WS.RosterStream)
	}

	return router
}
