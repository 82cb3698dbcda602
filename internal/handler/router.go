package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-portal-api/internal/middleware"
	"github.com/noah-isme/pe-portal-api/internal/models"
	"github.com/noah-isme/pe-portal-api/internal/service"
	"github.com/noah-isme/pe-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/pe-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/pe-portal-api/pkg/middleware/requestid"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	MediaDir       string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         middleware.TokenValidator

	Auth       *AuthHandler
	Classes    *ClassHandler
	Sessions   *SessionHandler
	Students   *StudentHandler
	Grades     *GradeHandler
	Activities *ActivityHandler
	Content    *ContentHandler
	Ops        *MetricsHandler
}

// NewRouter registers every route. Reads are public; writes and AI calls
// require a teacher token.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.GET("/health", cfg.Ops.Health)
	r.GET("/ready", cfg.Ops.Ready)
	r.GET("/metrics", cfg.Ops.Prometheus)
	if cfg.MediaDir != "" {
		r.Static("/media/videos", cfg.MediaDir)
	}
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	teacher := []gin.HandlerFunc{middleware.JWT(cfg.Tokens), middleware.RequireRoles(models.RoleTeacher)}

	api.POST("/auth/login", cfg.Auth.Login)
	api.GET("/auth/me", append(teacher, cfg.Auth.Me)...)

	api.GET("/classes", cfg.Classes.List)
	api.GET("/classes/:id", cfg.Classes.Get)
	api.GET("/classes/:id/sessions", cfg.Sessions.ListByClass)
	api.GET("/classes/:id/months", cfg.Sessions.Months)
	api.GET("/classes/:id/students", cfg.Students.ListByClass)
	api.GET("/sessions", cfg.Sessions.List)
	api.GET("/sessions/highlights", cfg.Sessions.Highlights)
	api.GET("/sessions/:id", cfg.Sessions.Get)
	api.GET("/students/:id", cfg.Students.Get)
	api.GET("/activities", cfg.Activities.List)
	api.GET("/activities/:id", cfg.Activities.Get)

	protected := api.Group("", teacher...)
	protected.POST("/classes", cfg.Classes.Create)
	protected.DELETE("/classes/:id", cfg.Classes.Delete)
	protected.POST("/classes/:id/grades/scan", cfg.Grades.Scan)
	protected.POST("/classes/:id/grades/merge", cfg.Grades.Merge)
	protected.GET("/classes/:id/grades/export", cfg.Grades.Export)
	protected.POST("/classes/:id/students/import", cfg.Grades.Import)

	protected.POST("/sessions", cfg.Sessions.Create)
	protected.PUT("/sessions/:id", cfg.Sessions.Update)
	protected.DELETE("/sessions/:id", cfg.Sessions.Delete)

	protected.POST("/students", cfg.Students.Create)
	protected.PUT("/students/:id", cfg.Students.Update)
	protected.DELETE("/students/:id", cfg.Students.Delete)

	protected.POST("/activities", cfg.Activities.Create)
	protected.PUT("/activities/:id", cfg.Activities.Update)
	protected.DELETE("/activities/:id", cfg.Activities.Delete)

	protected.POST("/ai/content", cfg.Content.Generate)

	return r
}
