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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/cendekia-fest/kompetisi-api/api/swagger"
	"github.com/cendekia-fest/kompetisi-api/internal/handler"
	"github.com/cendekia-fest/kompetisi-api/internal/middleware"
	"github.com/cendekia-fest/kompetisi-api/internal/models"
	"github.com/cendekia-fest/kompetisi-api/internal/repository"
	"github.com/cendekia-fest/kompetisi-api/internal/service"
	"github.com/cendekia-fest/kompetisi-api/pkg/cache"
	"github.com/cendekia-fest/kompetisi-api/pkg/config"
	"github.com/cendekia-fest/kompetisi-api/pkg/database"
	"github.com/cendekia-fest/kompetisi-api/pkg/export"
	"github.com/cendekia-fest/kompetisi-api/pkg/jobs"
	"github.com/cendekia-fest/kompetisi-api/pkg/logger"
	corsmiddleware "github.com/cendekia-fest/kompetisi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/cendekia-fest/kompetisi-api/pkg/middleware/requestid"
	"github.com/cendekia-fest/kompetisi-api/pkg/storage"
)

// @title Kompetisi API
// @version 1.0.0
// @description Competition registration service
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	fileStorage, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	competitionRepo := repository.NewCompetitionRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	teamMemberRepo := repository.NewTeamMemberRepository(db)
	pricingRepo := repository.NewPricingRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "kompetisi-api",
	})
	competitionSvc := service.NewCompetitionService(competitionRepo, cacheRepo, cfg.Catalog.CacheTTL, nil, logr)
	batchSvc := service.NewBatchService(batchRepo, settingsRepo, nil, logr)
	settingsSvc := service.NewSettingsService(settingsRepo, batchRepo, userRepo, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, competitionRepo, batchRepo, settingsRepo, fileStorage, userRepo, nil, logr, service.RegistrationServiceConfig{
		HoldDuration: cfg.Registration.HoldDuration,
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
	})
	registrationSvc.SetMetrics(metricsSvc)
	rosterSvc := service.NewRosterService(registrationRepo, competitionRepo, teamMemberRepo, cacheRepo, userRepo, nil, logr, service.RosterServiceConfig{
		StrictSchoolMatch: cfg.Registration.StrictSchoolMatch,
	})
	pricingSvc := service.NewPricingService(pricingRepo, userRepo, teamMemberRepo, nil, logr)
	paymentSvc := service.NewPaymentService(registrationRepo, teamMemberRepo, pricingSvc, userRepo, cacheRepo, export.NewReceiptRenderer(), cfg.Catalog.CacheTTL, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, registrationRepo, fileStorage, signer, userRepo, logr, service.SubmissionServiceConfig{})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sweepQueue *jobs.Queue
	var sweepScheduler *service.ExpirySweepScheduler
	if cfg.Registration.SweepEnabled {
		worker := service.NewExpirySweepWorker(registrationSvc, metricsSvc, logr)
		sweepQueue = jobs.NewQueue("expiry_sweep", worker.Handle, jobs.QueueConfig{Logger: logr})
		sweepQueue.Start(ctx)
		sweepScheduler = service.NewExpirySweepScheduler(sweepQueue, cfg.Registration.SweepInterval, logr)
		sweepScheduler.Start(ctx)
		logr.Sugar().Infow("expiry sweep enabled", "interval", cfg.Registration.SweepInterval)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	competitionHandler := handler.NewCompetitionHandler(competitionSvc)
	batchHandler := handler.NewBatchHandler(batchSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc, rosterSvc, paymentSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	pricingHandler := handler.NewPricingHandler(pricingSvc)
	adminHandler := handler.NewAdminHandler(registrationSvc, settingsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	api.GET("/competitions", competitionHandler.List)
	api.GET("/competitions/:id", competitionHandler.Get)
	api.GET("/batches", batchHandler.List)
	api.GET("/batches/current", batchHandler.Current)

	authed := api.Group("", middleware.JWT(authSvc))

	registrations := authed.Group("/registrations")
	{
		registrations.POST("", registrationHandler.Create)
		registrations.GET("", registrationHandler.ListMine)
		registrations.GET("/:id", registrationHandler.Get)
		registrations.DELETE("/:id", registrationHandler.Cancel)
		registrations.POST("/:id/payment-proof", registrationHandler.UploadProof)
		registrations.GET("/:id/payment-proof", middleware.Audit(userRepo, models.AuditActionProofView, "registration"), registrationHandler.ViewProof)
		registrations.POST("/:id/reupload", registrationHandler.ReuploadProof)
		registrations.POST("/:id/team-roster", registrationHandler.SubmitRoster)
		registrations.GET("/:id/team-roster", registrationHandler.ListRoster)
		registrations.GET("/:id/payment-details", registrationHandler.PaymentDetails)
		registrations.GET("/:id/receipt", registrationHandler.Receipt)
		registrations.POST("/:id/submissions", submissionHandler.Upload)
		registrations.GET("/:id/submissions", submissionHandler.List)
		registrations.GET("/:id/submissions/download-url", submissionHandler.DownloadURL)
		registrations.GET("/:id/submissions/download", submissionHandler.Download)
	}

	admin := authed.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/registrations", adminHandler.ListRegistrations)
		admin.PUT("/registrations/status", adminHandler.UpdateStatus)
		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings", adminHandler.UpdateSettings)
		admin.POST("/competitions", competitionHandler.Create)
		admin.PUT("/competitions/:id", competitionHandler.Update)
		admin.DELETE("/competitions/:id", competitionHandler.Delete)
		admin.POST("/batches", batchHandler.Create)
		admin.PUT("/batches/:id", batchHandler.Update)
		admin.DELETE("/batches/:id", batchHandler.Delete)
		admin.GET("/pricing", pricingHandler.List)
		admin.PUT("/pricing", pricingHandler.Upsert)
		admin.DELETE("/pricing/:id", pricingHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	if sweepScheduler != nil {
		sweepScheduler.Stop()
	}
	if sweepQueue != nil {
		sweepQueue.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
