package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/vgs-ops/shift-ops-api/api/swagger"
	"github.com/vgs-ops/shift-ops-api/internal/external"
	"github.com/vgs-ops/shift-ops-api/internal/handler"
	"github.com/vgs-ops/shift-ops-api/internal/middleware"
	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/internal/notify"
	"github.com/vgs-ops/shift-ops-api/internal/repository"
	"github.com/vgs-ops/shift-ops-api/internal/service"
	"github.com/vgs-ops/shift-ops-api/pkg/cache"
	"github.com/vgs-ops/shift-ops-api/pkg/config"
	"github.com/vgs-ops/shift-ops-api/pkg/database"
	"github.com/vgs-ops/shift-ops-api/pkg/logger"
	corsmiddleware "github.com/vgs-ops/shift-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vgs-ops/shift-ops-api/pkg/middleware/requestid"
	"github.com/vgs-ops/shift-ops-api/pkg/storage"
)

// @title Shift Ops API
// @version 1.0.0
// @description Guard shift scheduling: templates, shifts, assignments and conflict detection
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

	metrics := service.NewMetricsService()

	var cacheService *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		cacheService = service.NewCacheService(nil, metrics, cfg.Holiday.CacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metrics, cfg.Holiday.CacheTTL, logr, true)
	}

	templateRepo := repository.NewShiftTemplateRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	assignmentRepo := repository.NewShiftAssignmentRepository(db)
	conflictRepo := repository.NewShiftConflictRepository(db)
	guardRepo := repository.NewGuardRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)

	dispatcher := notify.NewDispatcher(cfg.Notifications, notify.NewLogSender(logr), logr)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	holidayClient := external.NewHolidayClient(cfg.Holiday, cacheService, logr)

	tokenService := service.NewTokenService(cfg.JWT)
	templateValidator := service.NewTemplateValidator(cfg.Schedule, logr)
	templateService := service.NewTemplateImportService(templateRepo, templateValidator, metrics, nil, logr)
	shiftService := service.NewShiftService(shiftRepo, holidayClient, metrics, nil, logr)
	assignmentService := service.NewAssignmentService(assignmentRepo, shiftRepo, guardRepo, teamRepo, dispatcher, cfg.Schedule, metrics, nil, logr)
	conflictService := service.NewConflictService(conflictRepo, assignmentRepo, leaveRepo, guardRepo, dispatcher, cacheService, cfg.Conflicts, metrics, logr)

	exportStorage, err := storage.NewLocalStorage(cfg.Export.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Export.SignSecret, cfg.Export.ResultTTL)
	exportService := service.NewExportService(conflictService, exportStorage, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Export.ResultTTL,
	}, logr, nil, nil)

	// Expired export files are reaped hourly; tokens expire on their own.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			removed, err := exportService.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired export files removed", zap.Int("count", len(removed)))
			}
		}
	}()

	templateHandler := handler.NewTemplateHandler(templateService)
	shiftHandler := handler.NewShiftHandler(shiftService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	conflictHandler := handler.NewConflictHandler(conflictService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenService))

	scheduling := middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler)
	supervising := middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler, models.RoleSupervisor)

	templates := api.Group("/templates")
	{
		templates.GET("", templateHandler.List)
		templates.GET("/:id", templateHandler.Get)
		templates.POST("/import", scheduling, middleware.Audit(logr, "shift_templates"), templateHandler.Import)
	}

	audited := middleware.Audit(logr, "scheduling")

	shifts := api.Group("/shifts")
	{
		shifts.GET("", shiftHandler.List)
		shifts.GET("/:id", shiftHandler.Get)
		shifts.POST("", scheduling, audited, shiftHandler.Create)
		shifts.PUT("/:id", scheduling, audited, shiftHandler.Update)
		shifts.DELETE("/:id", scheduling, audited, shiftHandler.Cancel)
	}

	assignments := api.Group("/assignments")
	{
		assignments.GET("", assignmentHandler.List)
		assignments.POST("", scheduling, assignmentHandler.Create)
		assignments.POST("/:id/confirm", assignmentHandler.Confirm)
		assignments.POST("/:id/decline", assignmentHandler.Decline)
		assignments.POST("/:id/check-in", assignmentHandler.CheckIn)
		assignments.POST("/:id/check-out", assignmentHandler.CheckOut)
		assignments.POST("/:id/complete", supervising, assignmentHandler.Complete)
		assignments.POST("/:id/no-show", supervising, assignmentHandler.NoShow)
		assignments.POST("/:id/cancel", supervising, assignmentHandler.Cancel)
		assignments.POST("/:id/replace", scheduling, assignmentHandler.Replace)
	}

	conflicts := api.Group("/conflicts")
	{
		conflicts.GET("", conflictHandler.List)
		conflicts.GET("/:id", conflictHandler.Get)
		conflicts.GET("/report", conflictHandler.Report)
		conflicts.POST("/report/export", supervising, exportHandler.Generate)
		conflicts.POST("/detect/guards/:guard_id", supervising, conflictHandler.DetectGuard)
		conflicts.POST("/detect/locations/:location_id", supervising, conflictHandler.DetectLocation)
		conflicts.POST("/:id/start", supervising, audited, conflictHandler.StartResolution)
		conflicts.POST("/:id/resolve", supervising, audited, conflictHandler.Resolve)
		conflicts.POST("/:id/ignore", supervising, audited, conflictHandler.Ignore)
	}

	api.GET("/export/:token", exportHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
