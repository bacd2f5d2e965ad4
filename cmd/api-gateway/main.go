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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description College timetable generation, reads and manual edits
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type generationLocker interface {
	Acquire(ctx context.Context, collegeID string, ttl time.Duration) (string, error)
	Release(ctx context.Context, collegeID, token string) error
}

func newGenerationLocker(client *redis.Client) generationLocker {
	if client == nil {
		return repository.NewMemoryGenerationLocker()
	}
	return repository.NewRedisGenerationLocker(client)
}

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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, falling back to in-process lock without cache", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, redisClient != nil)

	entryRepo := repository.NewTimetableEntryRepository(db)
	generator := service.NewTimetableGeneratorService(
		service.TimetableCatalog{
			Courses:    repository.NewCourseRepository(db),
			Subjects:   repository.NewSubjectRepository(db),
			Faculty:    repository.NewFacultyRepository(db),
			Classrooms: repository.NewClassroomRepository(db),
		},
		entryRepo,
		repository.NewGenerationRunRepository(db),
		newGenerationLocker(redisClient),
		db,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		service.TimetableGeneratorConfig{
			FillerCap:      cfg.Scheduler.FillerCap,
			LibraryMinHour: scheduler.Hour(cfg.Scheduler.LibraryMinHour),
			SectionStep:    cfg.Scheduler.SectionStep,
			SectionGroups:  cfg.Scheduler.SectionGroups,
			Seed:           cfg.Scheduler.Seed,
			LockTTL:        cfg.Scheduler.LockTTL,
		},
	)

	worker := service.NewGenerationWorker(generator, logr)
	queue := jobs.NewQueue("timetable-generation", worker.Handle, jobs.QueueConfig{
		Workers:     cfg.Scheduler.AsyncWorkers,
		BufferSize:  cfg.Scheduler.AsyncQueueSize,
		MaxRetries:  cfg.Scheduler.AsyncRetries,
		RetryDelay:  5 * time.Second,
		OnExhausted: worker.Exhausted,
		Logger:      logr,
	})
	queue.Start(context.Background())
	defer queue.Stop()
	generator.AttachDispatcher(queue)

	timetableSvc := service.NewTimetableService(
		entryRepo,
		cacheSvc,
		metricsSvc,
		export.NewCSVExporter(),
		export.NewLandscapePDFExporter(),
		validate,
		logr,
		service.TimetableServiceConfig{CacheTTL: cfg.Timetable.CacheTTL},
	)
	tokenSvc := service.NewTokenService(service.TokenServiceConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	timetableHandler := handler.NewTimetableHandler(generator, timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Config{AllowedOrigins: cfg.CORS.AllowedOrigins}))
	r.Use(middleware.Metrics(metricsSvc, "/health", "/ready", "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "dependency": "postgres"})
			return
		}
		if err := cache.Ready(ctx, redisClient); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "dependency": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	api := r.Group(cfg.APIPrefix, middleware.JWT(tokenSvc), middleware.RequireCollege(), middleware.WithResponseMeta())
	{
		timetable := api.Group("/timetable")
		timetable.GET("", timetableHandler.List)
		timetable.GET("/export", timetableHandler.Export)
		timetable.POST("/generate", admin, timetableHandler.Generate)
		timetable.POST("/generate/async", admin, timetableHandler.GenerateAsync)
		timetable.GET("/runs", admin, timetableHandler.ListRuns)
		timetable.GET("/runs/:id", admin, timetableHandler.GetRun)
		timetable.PATCH("/entries/:id", admin, timetableHandler.MoveEntry)

		api.GET("/system/metrics", admin, metricsHandler.Summary)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			os.Exit(1)
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
}
