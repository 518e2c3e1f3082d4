package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/internship-attendance-api/api/swagger"
	"github.com/noah-isme/internship-attendance-api/internal/handler"
	"github.com/noah-isme/internship-attendance-api/internal/repository"
	"github.com/noah-isme/internship-attendance-api/internal/service"
	"github.com/noah-isme/internship-attendance-api/migrations"
	"github.com/noah-isme/internship-attendance-api/pkg/cache"
	"github.com/noah-isme/internship-attendance-api/pkg/clock"
	"github.com/noah-isme/internship-attendance-api/pkg/config"
	"github.com/noah-isme/internship-attendance-api/pkg/database"
	"github.com/noah-isme/internship-attendance-api/pkg/jobs"
	"github.com/noah-isme/internship-attendance-api/pkg/logger"
	"github.com/noah-isme/internship-attendance-api/pkg/scantoken"
)

// @title Internship Attendance API
// @version 1.0.0
// @description QR scan attendance, schedule configuration, leave reconciliation and daily logbooks
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := migrate(cfg, logr); err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
		return
	}

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

// migrate applies pending schema migrations and exits.
func migrate(cfg *config.Config, logr *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	return database.Migrate(ctx, db, migrations.FS, logr)
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, migrations.FS, logr); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache and rate limiting", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	loc := cfg.Scan.Location()
	clk := clock.System(loc)
	validate := validator.New()
	metrics := service.NewMetricsService()

	tokens, err := scantoken.New(scantoken.Config{
		Secret: cfg.Scan.TokenSecret,
		Issuer: cfg.Scan.TokenIssuer,
		TTL:    cfg.Scan.TokenTTL,
		Leeway: cfg.Scan.TokenLeeway,
	})
	if err != nil {
		return fmt.Errorf("scan tokens: %w", err)
	}

	studentRepo := repository.NewStudentRepository(db)
	scheduleRepo := repository.NewScheduleConfigRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	logbookRepo := repository.NewLogbookRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Schedule.CacheTTL, logr, redisClient != nil)
	scheduleSvc := service.NewScheduleService(scheduleRepo, cacheSvc, cfg.Schedule.CacheTTL, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, scheduleSvc, tokens, metrics, validate, logr, service.AttendanceOptions{
		Clock:                 clk,
		Timeout:               cfg.Scan.Timeout,
		RejectOutsideGeofence: cfg.Scan.RejectOutsideGeofence,
	})
	backfillSvc := service.NewBackfillService(attendanceRepo, metrics, logr, loc)
	leaveSvc := service.NewLeaveService(leaveRepo, studentRepo, scheduleSvc, backfillSvc, validate, logr, clk)
	logbookSvc := service.NewLogbookService(logbookRepo, studentRepo, validate, logr, clk)
	scanTokenSvc := service.NewScanTokenService(studentRepo, tokens, logr)
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	retries := jobs.NewQueue(service.BackfillJobType, leaveSvc.HandleBackfillJob, jobs.QueueConfig{
		Workers:    cfg.Backfill.Workers,
		MaxRetries: cfg.Backfill.MaxRetries,
		RetryDelay: cfg.Backfill.RetryDelay,
		MaxDelay:   30 * time.Minute,
		Logger:     logr,
		OnGiveUp: func(job jobs.Job, err error) {
			metrics.BackfillGaveUp()
			logr.Error("leave backfill abandoned", zap.String("key", job.Key), zap.Int("attempts", job.Attempt), zap.Error(err))
		},
	})
	retries.Start(ctx)
	defer retries.Stop()
	leaveSvc.UseRetryQueue(retries)

	r := newRouter(cfg, logr, routerDeps{
		auth:       authSvc,
		metrics:    metrics,
		rateLimits: cacheRepo,
		attendance: handler.NewAttendanceHandler(attendanceSvc),
		scanTokens: handler.NewScanTokenHandler(scanTokenSvc),
		schedule:   handler.NewScheduleHandler(scheduleSvc),
		leave:      handler.NewLeaveHandler(leaveSvc),
		logbook:    handler.NewLogbookHandler(logbookSvc),
		health: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"postgres": handler.PingFunc(db.PingContext),
			"redis":    cacheRepo,
		}, logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
