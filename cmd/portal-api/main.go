package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/pe-portal-api/api/swagger"
	"github.com/noah-isme/pe-portal-api/internal/ai"
	"github.com/noah-isme/pe-portal-api/internal/handler"
	"github.com/noah-isme/pe-portal-api/internal/repository"
	"github.com/noah-isme/pe-portal-api/internal/service"
	"github.com/noah-isme/pe-portal-api/pkg/cache"
	"github.com/noah-isme/pe-portal-api/pkg/config"
	"github.com/noah-isme/pe-portal-api/pkg/database"
	"github.com/noah-isme/pe-portal-api/pkg/logger"
	"github.com/noah-isme/pe-portal-api/pkg/storage"
)

// @title PE Portal API
// @version 1.0.0
// @description Physical education portal: classes, training sessions with videos, rosters and AI-assisted grading
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, session cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	blobs, err := storage.NewLocalStorage(cfg.Media.StorageDir, cfg.Media.PublicBaseURL, cfg.Media.MaxVideoBytes)
	if err != nil {
		logr.Fatal("failed to prepare media storage", zap.Error(err))
	}

	aiClient, err := ai.New(ctx, cfg.AI, logr.Named("ai"))
	if err != nil {
		logr.Fatal("failed to init ai client", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.SessionsTTL, logr, redisClient != nil)

	classRepo := repository.NewClassRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	authSvc, err := service.NewAuthService(service.AuthConfig{
		TeacherPassword:   cfg.Auth.TeacherPassword,
		AccessTokenSecret: cfg.Auth.JWTSecret,
		AccessTokenExpiry: cfg.Auth.JWTExpiration,
		Issuer:            cfg.Auth.Issuer,
	}, validate, logr.Named("auth"))
	if err != nil {
		logr.Fatal("failed to init auth", zap.Error(err))
	}
	classSvc := service.NewClassService(classRepo, cacheSvc, validate, logr.Named("classes"))
	sessionSvc := service.NewSessionService(sessionRepo, classRepo, blobs, cacheSvc, metrics, validate, logr.Named("sessions"))
	studentSvc := service.NewStudentService(studentRepo, classRepo, validate, logr.Named("students"))
	gradeSvc := service.NewGradeMergeService(studentRepo, classRepo, aiClient, metrics, logr.Named("grades"))
	rosterSvc := service.NewRosterService(studentRepo, classRepo, aiClient, metrics, logr.Named("roster"))
	activitySvc := service.NewActivityService(activityRepo, cfg.Activities, validate, logr.Named("activities"))
	contentSvc := service.NewContentService(aiClient, metrics, validate, logr.Named("content"))

	checks := map[string]handler.Pinger{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MediaDir:       blobs.Dir(),
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         authSvc,
		Auth:           handler.NewAuthHandler(authSvc),
		Classes:        handler.NewClassHandler(classSvc),
		Sessions:       handler.NewSessionHandler(sessionSvc),
		Students:       handler.NewStudentHandler(studentSvc),
		Grades:         handler.NewGradeHandler(gradeSvc, rosterSvc),
		Activities:     handler.NewActivityHandler(activitySvc),
		Content:        handler.NewContentHandler(contentSvc),
		Ops:            handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "ai", aiClient.Available(), "cache", cacheSvc.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
