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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/omenezes/aula-planner-api/api/swagger"
	"github.com/omenezes/aula-planner-api/internal/handler"
	"github.com/omenezes/aula-planner-api/internal/middleware"
	"github.com/omenezes/aula-planner-api/internal/repository"
	"github.com/omenezes/aula-planner-api/internal/scheduler"
	"github.com/omenezes/aula-planner-api/internal/service"
	"github.com/omenezes/aula-planner-api/pkg/cache"
	"github.com/omenezes/aula-planner-api/pkg/config"
	"github.com/omenezes/aula-planner-api/pkg/database"
	"github.com/omenezes/aula-planner-api/pkg/drive"
	"github.com/omenezes/aula-planner-api/pkg/logger"
	corsmiddleware "github.com/omenezes/aula-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/omenezes/aula-planner-api/pkg/middleware/requestid"
)

// @title Aula Planner API
// @version 1.0.0
// @description Lesson planning backend with cloud backup sync
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	importRepo := repository.NewImportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, logr)
	importSvc := service.NewImportService(importRepo, instructorRepo, cacheSvc, logr)

	var backupSvc *service.BackupService
	if cfg.Drive.Enabled {
		driveClient := drive.NewClient(cfg.Drive, logr)
		backupSvc = service.NewBackupService(driveClient, classRepo, lessonRepo, instructorRepo, importSvc, logr)
	}

	var authSvc *service.AuthService
	if backupSvc != nil {
		authSvc = service.NewAuthService(userRepo, backupSvc, nil, logr, cfg.JWT)
	} else {
		authSvc = service.NewAuthService(userRepo, nil, nil, logr, cfg.JWT)
	}
	calendarSvc := service.NewCalendarService(lessonRepo, cacheSvc, cfg.Dashboard, logr)
	classSvc := service.NewClassService(classRepo, lessonRepo, cacheSvc, nil, logr)
	lessonSvc := service.NewLessonService(lessonRepo, classRepo, instructorRepo, cacheSvc, nil, logr)
	instructorSvc := service.NewInstructorService(instructorRepo, nil, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	dashboardHandler := handler.NewDashboardHandler(calendarSvc)
	classHandler := handler.NewClassHandler(classSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	instructorHandler := handler.NewInstructorHandler(instructorSvc)
	importHandler := handler.NewImportHandler(importSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/profile", authHandler.Profile)
		authed.PUT("/auth/profile", authHandler.UpdateProfile)

		authed.GET("/dashboard", dashboardHandler.Get)

		authed.GET("/classes", classHandler.List)
		authed.POST("/classes", classHandler.Create)
		authed.GET("/classes/:id", classHandler.Get)
		authed.PUT("/classes/:id", classHandler.Update)
		authed.PATCH("/classes/:id/toggle", classHandler.Toggle)
		authed.DELETE("/classes/:id", classHandler.Delete)
		authed.GET("/classes/:id/plan", classHandler.ExportPlan)

		authed.GET("/lessons", lessonHandler.List)
		authed.POST("/lessons", lessonHandler.Create)
		authed.GET("/lessons/import/template", lessonHandler.CSVTemplate)
		authed.GET("/lessons/:id", lessonHandler.Get)
		authed.PUT("/lessons/:id", lessonHandler.Update)
		authed.DELETE("/lessons/:id", lessonHandler.Delete)

		authed.GET("/instructors", instructorHandler.List)
		authed.POST("/instructors", instructorHandler.Create)
		authed.DELETE("/instructors/:id", instructorHandler.Delete)

		authed.POST("/imports/csv", importHandler.ImportCSV)
		authed.POST("/imports/json", importHandler.ImportJSON)

		if backupSvc != nil {
			backupHandler := handler.NewBackupHandler(backupSvc)
			authed.GET("/backups", backupHandler.List)
			authed.POST("/backups", backupHandler.Push)
			authed.POST("/backups/sync", backupHandler.Sync)
			authed.POST("/backups/:id/restore", backupHandler.Restore)
			authed.GET("/backups/export", backupHandler.Export)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sweep *scheduler.BackupScheduler
	if backupSvc != nil && cfg.Backup.SweepEnabled {
		sweep = scheduler.NewBackupScheduler(userRepo, backupSvc, metricsSvc, cfg.Backup, logr)
		sweep.Start(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	if sweep != nil {
		sweep.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
