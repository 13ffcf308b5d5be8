package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/course-enroll-api/api/swagger"
	"github.com/noah-isme/course-enroll-api/internal/handler"
	"github.com/noah-isme/course-enroll-api/internal/middleware"
	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/internal/repository"
	"github.com/noah-isme/course-enroll-api/internal/service"
	"github.com/noah-isme/course-enroll-api/pkg/cache"
	"github.com/noah-isme/course-enroll-api/pkg/config"
	"github.com/noah-isme/course-enroll-api/pkg/database"
	"github.com/noah-isme/course-enroll-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-enroll-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-enroll-api/pkg/middleware/requestid"
)

// @title Course Enrollment API
// @version 1.0.0
// @description Seasonal course catalog with admission-controlled enrollment
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
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userRepo := repository.NewUserRepository(db)
	seasonRepo := repository.NewSeasonRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	metricsSvc := service.NewMetricsService()
	auditSvc := service.NewAuditService(userRepo, cfg.Audit, logr)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, logr)
	seasonSvc := service.NewSeasonService(seasonRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, seasonRepo, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, nil, logr, metricsSvc, auditSvc, cfg.Enrollment.MaxAdmissionRetries)
	reportSvc := service.NewReportService(seasonRepo, enrollmentRepo, redisClient, cfg.Reports.CacheTTL, metricsSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	seasonHandler := handler.NewSeasonHandler(seasonSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.JWT(authSvc)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authRequired, authHandler.Logout)
			auth.GET("/me", authRequired, authHandler.Me)
		}

		users := api.Group("/users", authRequired)
		{
			users.GET("", adminOnly, userHandler.List)
			users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
			users.PATCH("/:id/active", adminOnly, userHandler.SetActive)
		}

		seasons := api.Group("/seasons")
		{
			seasons.GET("", seasonHandler.List)
			seasons.GET("/:id", seasonHandler.Get)
			seasons.POST("", authRequired, adminOnly, seasonHandler.Create)
			seasons.PUT("/:id", authRequired, adminOnly, seasonHandler.Update)
			seasons.DELETE("/:id", authRequired, adminOnly, seasonHandler.Delete)
		}

		courses := api.Group("/courses")
		{
			courses.GET("", courseHandler.List)
			courses.GET("/:id", courseHandler.Get)
			courses.GET("/:id/sections", courseHandler.Sections)
			courses.POST("", authRequired, staffOnly, courseHandler.Create)
			courses.PUT("/:id", authRequired, staffOnly, courseHandler.Update)
			courses.PATCH("/:id/published", authRequired, staffOnly, courseHandler.SetPublished)
			courses.DELETE("/:id", authRequired, adminOnly, courseHandler.Delete)
			courses.POST("/:id/sections", authRequired, staffOnly, courseHandler.CreateSection)
			courses.DELETE("/:id/sections/:sectionId", authRequired, staffOnly, courseHandler.DeleteSection)
		}

		enrollments := api.Group("/enrollments", authRequired)
		{
			enrollments.POST("", enrollmentHandler.Create)
			enrollments.GET("/mine", enrollmentHandler.Mine)
		}

		reports := api.Group("/reports", authRequired, staffOnly)
		{
			reports.GET("/enrollment", reportHandler.EnrollmentReport)
		}
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
