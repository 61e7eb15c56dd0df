package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/deptsched/timetable-api/api/swagger"
	"github.com/deptsched/timetable-api/internal/handler"
	"github.com/deptsched/timetable-api/internal/middleware"
	"github.com/deptsched/timetable-api/internal/repository"
	"github.com/deptsched/timetable-api/internal/service"
	"github.com/deptsched/timetable-api/pkg/cache"
	"github.com/deptsched/timetable-api/pkg/config"
	"github.com/deptsched/timetable-api/pkg/database"
	"github.com/deptsched/timetable-api/pkg/logger"
	corsmiddleware "github.com/deptsched/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/deptsched/timetable-api/pkg/middleware/requestid"
	"github.com/deptsched/timetable-api/pkg/storage"
)

// @title Department Timetable API
// @version 1.0.0
// @description Multi-phase timetable generation for lab rotations, theory slots and hierarchical teacher assignment.
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and locking disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	sectionRepo := repository.NewSectionRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	labRepo := repository.NewLabRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(redisClient, cfg.Scheduler.CacheTTL, logr)
	timetableSvc := service.NewTimetableService(
		sectionRepo, subjectRepo, labRepo, teacherRepo, roomRepo,
		timetableRepo, db, cacheSvc, metricsSvc, validate, logr,
		service.TimetableServiceConfig{
			Seed:            cfg.Scheduler.Seed,
			LockTTL:         cfg.Scheduler.LockTTL,
			CacheTTL:        cfg.Scheduler.CacheTTL,
			RebalanceBudget: cfg.Scheduler.RebalanceBudget,
		},
	)
	validatorSvc := service.NewScheduleValidator(timetableRepo, labRepo, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(
			timetableRepo, sectionRepo, subjectRepo, labRepo, teacherRepo,
			store, signer, validate, logr,
			service.ExportServiceConfig{
				WorkerConcurrency: cfg.Exports.WorkerConcurrency,
				WorkerRetries:     cfg.Exports.WorkerRetries,
			},
		)
	}

	timetableHandler := handler.NewTimetableHandler(timetableSvc, validatorSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))
	{
		timetables := api.Group("/timetables")
		{
			timetables.POST("/generate", middleware.RequireRole("ADMIN", "SCHEDULER"), timetableHandler.Generate)
			timetables.GET("", timetableHandler.List)
			timetables.GET("/sections/:sectionId", timetableHandler.GetBySection)
			timetables.POST("/validate", timetableHandler.Validate)
			timetables.GET("/workload", timetableHandler.Workload)
		}

		if exportSvc != nil {
			exportHandler := handler.NewExportHandler(exportSvc)
			timetables.POST("/export", exportHandler.Enqueue)
			api.GET("/exports/:id", exportHandler.GetJob)
			api.GET("/exports/:id/download", exportHandler.Download)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if exportSvc != nil {
		exportSvc.Start(ctx)
		defer exportSvc.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
