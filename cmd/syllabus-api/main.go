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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-dev/syllabus-api/api/swagger"
	"github.com/campus-dev/syllabus-api/internal/handler"
	"github.com/campus-dev/syllabus-api/internal/middleware"
	"github.com/campus-dev/syllabus-api/internal/models"
	"github.com/campus-dev/syllabus-api/internal/repository"
	"github.com/campus-dev/syllabus-api/internal/service"
	"github.com/campus-dev/syllabus-api/pkg/cache"
	"github.com/campus-dev/syllabus-api/pkg/config"
	"github.com/campus-dev/syllabus-api/pkg/database"
	"github.com/campus-dev/syllabus-api/pkg/logger"
	corsmiddleware "github.com/campus-dev/syllabus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-dev/syllabus-api/pkg/middleware/requestid"
	"github.com/campus-dev/syllabus-api/pkg/storage"
)

// @title Syllabus API
// @version 1.0.0
// @description Syllabus lifecycle service: drafting, multi-stage approval, publication, student feedback and revision cycles
// @BasePath /api/v1
// @schemes http

const syllabusCacheTTL = 5 * time.Minute

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
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	syllabusRepo := repository.NewSyllabusRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc := service.NewNotificationService(notificationRepo, nil, logr, cfg.Notifications)
	notificationSvc.Start(rootCtx)
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "syllabus-api",
	})

	syllabusSvc := service.NewSyllabusService(syllabusRepo, subjectRepo, userRepo, userRepo, validate, logr,
		service.WithSyllabusNotifier(notificationSvc),
		service.WithSyllabusMetrics(metricsSvc),
		service.WithSyllabusCache(cacheRepo, syllabusCacheTTL),
	)

	revisionSvc := service.NewRevisionService(revisionRepo, syllabusRepo, feedbackRepo, historyRepo, userRepo, subjectRepo, userRepo, validate, logr,
		service.WithRevisionNotifier(notificationSvc),
		service.WithRevisionMetrics(metricsSvc),
	)

	feedbackSvc := service.NewFeedbackService(feedbackRepo, syllabusRepo, userRepo, validate, logr,
		service.WithFeedbackNotifier(notificationSvc),
	)

	taskSvc := service.NewTaskService(taskRepo, cacheRepo, service.DefaultTaskRunners(syllabusRepo), validate, logr, cfg.Tasks)
	taskSvc.Start(rootCtx)
	defer taskSvc.Stop()

	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(syllabusRepo, exportStore, signer, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	syllabusHandler := handler.NewSyllabusHandler(syllabusSvc)
	revisionHandler := handler.NewRevisionHandler(revisionSvc)
	feedbackHandler := handler.NewFeedbackHandler(feedbackSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	// Signed token is the credential here, no JWT required.
	api.GET("/exports/download", exportHandler.Download)

	protected := api.Group("", middleware.JWT(authSvc))

	syllabi := protected.Group("/syllabi")
	{
		syllabi.GET("", syllabusHandler.List)
		syllabi.GET("/:id", syllabusHandler.Get)
		syllabi.GET("/:id/versions", syllabusHandler.VersionChain)
		syllabi.GET("/:id/compare", syllabusHandler.Compare)
		syllabi.GET("/:id/history", middleware.RequireStaff(), revisionHandler.ListHistory)
		syllabi.GET("/:id/revisions", revisionHandler.ListBySyllabus)

		authoring := syllabi.Group("", middleware.RequireRoles(models.RoleLecturer, models.RoleAdmin))
		authoring.POST("", syllabusHandler.Create)
		authoring.PUT("/:id", syllabusHandler.Update)
		authoring.DELETE("/:id", syllabusHandler.Delete)
		authoring.POST("/:id/submit", syllabusHandler.Submit)
		authoring.POST("/:id/clone", syllabusHandler.Clone)

		reviewing := syllabi.Group("", middleware.RequireRoles(models.RoleHOD, models.RoleAcademicAffairs, models.RolePrincipal, models.RoleAdmin))
		reviewing.POST("/:id/approve", syllabusHandler.Approve)
		reviewing.POST("/:id/reject", syllabusHandler.Reject)

		syllabi.POST("/:id/export", middleware.Audit(userRepo, "EXPORT_SYLLABUS", "syllabus"), exportHandler.Export)
	}

	revisions := protected.Group("/revisions")
	{
		revisions.GET("/:id", revisionHandler.Get)

		adminOnly := revisions.Group("", middleware.RequireRoles(models.RoleAdmin))
		adminOnly.POST("", revisionHandler.Start)
		adminOnly.POST("/:id/republish", revisionHandler.Republish)
		adminOnly.POST("/:id/cancel", revisionHandler.Cancel)

		revisions.POST("/:id/submit", middleware.RequireRoles(models.RoleLecturer, models.RoleAdmin), revisionHandler.Submit)
		revisions.POST("/:id/review", middleware.RequireRoles(models.RoleHOD, models.RoleAdmin), revisionHandler.Review)
	}

	feedback := protected.Group("/feedback")
	{
		feedback.GET("", feedbackHandler.List)
		feedback.GET("/:id", feedbackHandler.Get)
		feedback.POST("", middleware.RequireRoles(models.RoleStudent), feedbackHandler.Create)
		feedback.POST("/:id/respond", middleware.RequireRoles(models.RoleAdmin), feedbackHandler.Respond)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
	}

	tasks := protected.Group("/tasks")
	{
		tasks.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleLecturer), middleware.Audit(userRepo, "DISPATCH_TASK", "task"), taskHandler.Dispatch)
		tasks.GET("/:id", taskHandler.Status)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
