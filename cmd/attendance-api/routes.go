package main

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/internship-attendance-api/internal/handler"
	"github.com/noah-isme/internship-attendance-api/internal/middleware"
	"github.com/noah-isme/internship-attendance-api/internal/models"
	"github.com/noah-isme/internship-attendance-api/internal/service"
	"github.com/noah-isme/internship-attendance-api/pkg/config"
	"github.com/noah-isme/internship-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/internship-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/internship-attendance-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth       *service.AuthService
	metrics    *service.MetricsService
	rateLimits middleware.WindowCounter
	attendance *handler.AttendanceHandler
	scanTokens *handler.ScanTokenHandler
	schedule   *handler.ScheduleHandler
	leave      *handler.LeaveHandler
	logbook    *handler.LogbookHandler
	health     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(deps.metrics))
		r.GET("/metrics", deps.health.Prometheus)
	}
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/attendance/scan",
		middleware.RateLimit(deps.rateLimits, "scan", cfg.Scan.RateLimitPerMinute, time.Minute, logr),
		deps.attendance.Scan,
	)

	authed := api.Group("", middleware.JWT(deps.auth))
	admin := middleware.RequireRoles(models.RoleAdmin)
	student := middleware.RequireRoles(models.RoleStudent)

	authed.GET("/attendance/today", student, deps.attendance.Today)
	authed.GET("/attendance", admin, deps.attendance.List)

	authed.POST("/scan-tokens", student, deps.scanTokens.IssueOwn)
	authed.POST("/students/:id/scan-tokens", middleware.RBAC("id", models.RoleAdmin), deps.scanTokens.IssueFor)

	authed.GET("/schedule/active", deps.schedule.Active)
	authed.PUT("/schedule", admin, middleware.Audit(logr, "replace", "schedule_config"), deps.schedule.Replace)
	authed.GET("/schedule/history", admin, deps.schedule.History)

	authed.POST("/leave-requests", student, deps.leave.Submit)
	authed.GET("/leave-requests", deps.leave.List)
	authed.GET("/leave-requests/:id", deps.leave.Get)
	authed.PUT("/leave-requests/:id/review", admin, middleware.Audit(logr, "review", "leave_request"), deps.leave.Review)
	authed.POST("/leave-requests/:id/backfill", admin, middleware.Audit(logr, "backfill", "leave_request"), deps.leave.Backfill)

	authed.POST("/logbooks", student, deps.logbook.Submit)
	authed.GET("/logbooks", deps.logbook.List)
	authed.GET("/logbooks/:id", deps.logbook.Get)
	authed.PUT("/logbooks/:id", student, deps.logbook.Revise)
	authed.PUT("/logbooks/:id/review", admin, middleware.Audit(logr, "review", "logbook_entry"), deps.logbook.Review)
	authed.DELETE("/logbooks/:id", middleware.Audit(logr, "delete", "logbook_entry"), deps.logbook.Delete)

	return r
}
