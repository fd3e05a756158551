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
	"go.uber.org/zap"

	_ "github.com/noah-isme/survey-pulse-api/api/swagger"
	"github.com/noah-isme/survey-pulse-api/internal/handler"
	"github.com/noah-isme/survey-pulse-api/internal/middleware"
	"github.com/noah-isme/survey-pulse-api/internal/notify"
	"github.com/noah-isme/survey-pulse-api/internal/realtime"
	"github.com/noah-isme/survey-pulse-api/internal/repository"
	"github.com/noah-isme/survey-pulse-api/internal/service"
	"github.com/noah-isme/survey-pulse-api/pkg/cache"
	"github.com/noah-isme/survey-pulse-api/pkg/config"
	"github.com/noah-isme/survey-pulse-api/pkg/database"
	"github.com/noah-isme/survey-pulse-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/survey-pulse-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/survey-pulse-api/pkg/middleware/requestid"
	"github.com/noah-isme/survey-pulse-api/pkg/storage"
)

// @title Survey Pulse API
// @version 1.0.0
// @description Survey lifecycle, response admission and statistics service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Statistics fall back to direct computation without Redis.
		logr.Warn("redis unavailable, statistics cache disabled", zap.Error(err))
		redisClient = nil
	}

	mediaStore, err := storage.NewMediaStore(cfg.Media.StorageDir)
	if err != nil {
		logr.Fatal("failed to init media store", zap.Error(err))
	}

	validate := validator.New()

	surveyRepo := repository.NewSurveyRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	hub := realtime.NewHub(logr)
	notifier := notify.NewSlackNotifier(cfg.Slack, logr)

	statsSvc := service.NewStatisticsService(surveyRepo, responseRepo, cacheRepo, cfg.Statistics.CacheTTL, metricsSvc, logr)
	analysisSvc := service.NewAnalysisService(cfg.AI, surveyRepo, statsSvc, logr)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	surveySvc := service.NewSurveyService(surveyRepo, responseRepo, mediaStore, statsSvc, notifier, analysisSvc, metricsSvc, validate, logr)
	submissionSvc := service.NewSubmissionService(surveyRepo, responseRepo, userRepo, statsSvc, hub, notifier, analysisSvc, metricsSvc, logr)
	lifecycleSvc := service.NewLifecycleService(surveyRepo, notifier, analysisSvc, metricsSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analysisSvc.Start(ctx)
	defer analysisSvc.Stop()
	go analysisSvc.RunBackfillLoop(ctx, cfg.AI.BackfillInterval)

	if cfg.Lifecycle.Enabled {
		go lifecycleSvc.RunLoop(ctx, cfg.Lifecycle.SweepInterval)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	authHandler := handler.NewAuthHandler(authSvc)
	surveyHandler := handler.NewSurveyHandler(surveySvc)
	responseHandler := handler.NewResponseHandler(surveySvc, statsSvc)
	publicHandler := handler.NewPublicHandler(submissionSvc)
	mediaHandler := handler.NewMediaHandler(mediaStore, cfg.Media.MaxFileSize)
	wsHandler := handler.NewWSHandler(hub, cfg.CORS.AllowedOrigins, logr)
	lifecycleHandler := handler.NewLifecycleHandler(lifecycleSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/ws", wsHandler.Connect)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		public := api.Group("/public", middleware.OptionalJWT(authSvc))
		{
			public.GET("/surveys/:id", publicHandler.GetSurvey)
			public.POST("/surveys/:id/responses", publicHandler.Submit)
		}

		surveys := api.Group("/surveys", middleware.JWT(authSvc))
		{
			surveys.POST("", surveyHandler.Create)
			surveys.GET("", surveyHandler.List)
			surveys.GET("/templates", surveyHandler.Templates)
			surveys.POST("/templates", surveyHandler.CreateTemplate)
			surveys.GET("/:id", surveyHandler.Get)
			surveys.PUT("/:id", surveyHandler.Update)
			surveys.DELETE("/:id", surveyHandler.Delete)
			surveys.POST("/:id/clone", surveyHandler.Clone)
			surveys.PATCH("/:id/status", surveyHandler.ToggleStatus)
			surveys.PUT("/:id/settings", surveyHandler.UpdateSettings)

			surveys.GET("/:id/responses", responseHandler.List)
			surveys.GET("/:id/responses/:responseId", responseHandler.Get)
			surveys.DELETE("/:id/responses/:responseId", responseHandler.Delete)
			surveys.GET("/:id/statistics", responseHandler.Statistics)
			surveys.GET("/:id/export", responseHandler.Export)
		}

		media := api.Group("/media")
		{
			media.GET("/:ref", mediaHandler.Get)
			media.POST("", middleware.JWT(authSvc), mediaHandler.Upload)
			media.DELETE("/:ref", middleware.JWT(authSvc), mediaHandler.Delete)
		}

		admin := api.Group("/admin", middleware.JWT(authSvc))
		{
			admin.POST("/sweep", lifecycleHandler.Sweep)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Warn("closing redis failed", zap.Error(err))
	}
}
