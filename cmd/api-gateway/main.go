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

	_ "github.com/focuskid/guardian-api/api/swagger"
	"github.com/focuskid/guardian-api/internal/handler"
	"github.com/focuskid/guardian-api/internal/middleware"
	"github.com/focuskid/guardian-api/internal/models"
	"github.com/focuskid/guardian-api/internal/repository"
	"github.com/focuskid/guardian-api/internal/service"
	"github.com/focuskid/guardian-api/pkg/cache"
	"github.com/focuskid/guardian-api/pkg/config"
	"github.com/focuskid/guardian-api/pkg/database"
	"github.com/focuskid/guardian-api/pkg/export"
	"github.com/focuskid/guardian-api/pkg/logger"
	corsmiddleware "github.com/focuskid/guardian-api/pkg/middleware/cors"
	reqidmiddleware "github.com/focuskid/guardian-api/pkg/middleware/requestid"
)

// @title Guardian Linking & Reward Ledger API
// @version 0.1.0
// @description Consent-gated guardian links and signed point ledger
// @BasePath /
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := database.Migrate(ctx, db); err != nil {
			cancel()
			logr.Sugar().Fatalw("migrations failed", "error", err)
		}
		cancel()
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
		}
	}

	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	notifierSvc := service.NewNotifierService(notificationRepo, logr, cfg.Notifications).WithMetrics(metricsSvc)
	notifierCtx, stopNotifier := context.WithCancel(context.Background())
	notifierSvc.Start(notifierCtx)
	defer func() {
		stopNotifier()
		notifierSvc.Stop()
	}()

	accessSvc := service.NewAccessService(linkRepo)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "guardian-api",
	})
	linkSvc := service.NewLinkService(linkRepo, userRepo, notifierSvc, validate, logr)
	rewardSvc := service.NewRewardService(rewardRepo, enrollmentRepo, userRepo, accessSvc, notifierSvc, validate, logr, cfg.Ledger)
	dashboardSvc := service.NewDashboardService(linkRepo, userRepo, sessionRepo, rewardRepo, cacheSvc, logr, cfg.Dashboard)

	authHandler := handler.NewAuthHandler(authSvc)
	linkHandler := handler.NewLinkHandler(linkSvc, dashboardSvc)
	rewardHandler := handler.NewRewardHandler(rewardSvc, export.NewCSVExporter(), export.NewPDFExporter())
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	notificationHandler := handler.NewNotificationHandler(notifierSvc)

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

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	links := authed.Group("/links")
	links.POST("", middleware.RequireRoles(models.RoleGuardian),
		middleware.Audit(userRepo, models.AuditActionLinkRequest, "links"), linkHandler.Request)
	links.GET("", linkHandler.List)
	links.GET("/pending", middleware.RequireRoles(models.RoleStudent), linkHandler.Pending)
	links.PUT("/:id/respond", middleware.RequireRoles(models.RoleStudent),
		middleware.Audit(userRepo, models.AuditActionLinkRespond, "links"), linkHandler.Respond)
	links.DELETE("/:counterpartId",
		middleware.Audit(userRepo, models.AuditActionLinkRemove, "links"), linkHandler.Remove)

	rewards := authed.Group("/rewards")
	rewards.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleGuardian),
		middleware.Audit(userRepo, models.AuditActionRewardPost, "rewards"), rewardHandler.Post)
	rewards.GET("", rewardHandler.List)
	rewards.GET("/total", rewardHandler.Totals)
	rewards.GET("/summary", rewardHandler.Summary)
	rewards.GET("/export",
		middleware.Audit(userRepo, models.AuditActionRewardExport, "rewards"), rewardHandler.Export)
	rewards.DELETE("/:id",
		middleware.Audit(userRepo, models.AuditActionRewardCancel, "rewards"), rewardHandler.Cancel)

	authed.GET("/dashboard/guardian", middleware.RequireRoles(models.RoleGuardian), dashboardHandler.Guardian)

	notifications := authed.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.PUT("/:id/read", notificationHandler.MarkRead)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
