package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identityapp "github.com/kpiboard/backend/internal/application/identity"
	appkpi "github.com/kpiboard/backend/internal/application/kpi"
	"github.com/kpiboard/backend/internal/domain/unified"
	"github.com/kpiboard/backend/internal/infrastructure/auth"
	"github.com/kpiboard/backend/internal/infrastructure/config"
	"github.com/kpiboard/backend/internal/infrastructure/logger"
	"github.com/kpiboard/backend/internal/infrastructure/marketplace"
	"github.com/kpiboard/backend/internal/infrastructure/persistence"
	"github.com/kpiboard/backend/internal/infrastructure/scheduler"
	"github.com/kpiboard/backend/internal/interfaces/http/handler"
	"github.com/kpiboard/backend/internal/interfaces/http/middleware"
	"github.com/kpiboard/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting KPI Board backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	// Connect to database
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName))

	// Token infrastructure
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-memory token blacklist",
			zap.Error(err))
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		blacklist = redisBlacklist
		log.Info("Redis token blacklist connected",
			zap.String("host", cfg.Redis.Host))
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	rollupRepo := persistence.NewGormRollupRepository(db.DB)

	// Platform adapters, one per marketplace raw schema
	adapters := []unified.Adapter{
		marketplace.NewShopifyAdapter(db.DB),
		marketplace.NewAmazonAdapter(db.DB),
		marketplace.NewLazadaAdapter(db.DB),
		marketplace.NewShopeeAdapter(db.DB),
	}

	// Application services
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, cfg.JWT.ResetTokenExpiration, log)
	queryService := appkpi.NewQueryService(rollupRepo, log)
	rebuildService := appkpi.NewRebuildService(rollupRepo, adapters, log)

	// Scheduled nightly rebuild
	var rebuildScheduler *scheduler.RebuildCronScheduler
	if cfg.Scheduler.Enabled {
		rebuildScheduler, err = scheduler.NewRebuildCronScheduler(cfg.Scheduler, rebuildService, log)
		if err != nil {
			log.Fatal("Failed to create rebuild scheduler", zap.Error(err))
		}
		if err := rebuildScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start rebuild scheduler", zap.Error(err))
		}
		log.Info("Rebuild scheduler started",
			zap.String("schedule", cfg.Scheduler.RebuildCronSchedule))
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	kpiHandler := handler.NewKPIHandler(queryService, rebuildService)
	systemHandler := handler.NewSystemHandler(db)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Middleware stack, outermost first
	r.Use(middleware.RequestID())
	r.Use(logger.Recovery(log))
	r.Use(logger.GinMiddleware(log))
	r.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	r.Use(middleware.CORSWithConfig(corsConfig))

	r.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		r.Use(middleware.RateLimit(
			middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}

	// JWT auth for everything except the public endpoints
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = blacklist
	jwtConfig.Logger = log
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Probes live at the engine root, outside the versioned API
	engine.GET("/healthz", systemHandler.Healthz)
	engine.GET("/readyz", systemHandler.Readyz)

	// Routes
	authGroup := router.NewDomainGroup("auth", "/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password", authHandler.ResetPassword)
	authGroup.GET("/me", authHandler.GetCurrentUser)
	authGroup.POST("/refresh", authHandler.RefreshToken)
	authGroup.POST("/logout", authHandler.Logout)

	kpiGroup := router.NewDomainGroup("kpis", "/kpis")
	kpiGroup.GET("/overview", kpiHandler.PlatformOverview)
	kpiGroup.GET("/daily", kpiHandler.DailySnapshots)
	kpiGroup.GET("/revenue", kpiHandler.RevenueByPlatform)
	kpiGroup.GET("/products", kpiHandler.ProductPerformance)
	kpiGroup.GET("/summary", kpiHandler.DashboardSummary)
	kpiGroup.POST("/rebuild", kpiHandler.Rebuild)

	systemGroup := router.NewDomainGroup("system", "/system")
	systemGroup.GET("/info", systemHandler.GetSystemInfo)

	r.Register(authGroup).Register(kpiGroup).Register(systemGroup)
	r.Setup()

	// HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if rebuildScheduler != nil {
		if err := rebuildScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop rebuild scheduler", zap.Error(err))
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
