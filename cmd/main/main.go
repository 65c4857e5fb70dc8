package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/modelmux/modelmux/src/cache"
	"github.com/modelmux/modelmux/src/config"
	"github.com/modelmux/modelmux/src/handlers"
	"github.com/modelmux/modelmux/src/metrics"
	"github.com/modelmux/modelmux/src/middleware"
	"github.com/modelmux/modelmux/src/models"
	"github.com/modelmux/modelmux/src/providers"
	"github.com/modelmux/modelmux/src/ratelimit"
	"github.com/modelmux/modelmux/src/router"
	"github.com/modelmux/modelmux/src/selector"
	"github.com/modelmux/modelmux/src/tools"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}
}

func main() {
	logger, err := buildLogger()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	logger.Info("config loaded", zap.Int("models", len(cfg.Models)))

	ctx := context.Background()

	var toolBridge models.ToolBridge
	if cfg.Settings.ToolsRoot != "" {
		toolBridge = tools.NewFSBridge(cfg.Settings.ToolsRoot)
		logger.Info("filesystem tools enabled", zap.String("root", cfg.Settings.ToolsRoot))
	}

	adapters := make(map[string]models.ProviderAdapter)
	for id, mc := range cfg.Models {
		if !mc.Enabled {
			continue
		}
		adapter, err := providers.Build(ctx, id, mc, toolBridge)
		if err != nil {
			logger.Warn("skipping model, adapter init failed",
				zap.String("model", id),
				zap.String("provider", mc.Provider),
				zap.Error(err))
			continue
		}
		adapters[id] = adapter
		logger.Info("adapter ready", zap.String("model", id), zap.String("provider", mc.Provider))
	}
	if len(adapters) == 0 {
		logger.Fatal("no usable model adapters, check provider API keys")
	}

	var store models.CacheStore
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, running without response cache", zap.Error(err))
		} else {
			store = redisCache
			defer redisCache.Close()
			logger.Info("response cache connected", zap.String("address", cfg.Redis.Address))
		}
	}

	limiter := ratelimit.New(cfg.Settings.RateLimits.BurstLimit, cfg.Settings.RateLimits.RequestsPerMinute)
	limiter.Start()
	defer limiter.Stop()

	collector := metrics.NewCollector()
	collector.Start()
	defer collector.Stop()

	budget := metrics.NewBudgetGuard(cfg.Settings.BudgetLimits.MaxTotalUSD)

	queryRouter := router.New(router.Options{
		Configs:       cfg.Models,
		Adapters:      adapters,
		Selector:      selector.New(cfg.Models, cfg.Settings.DefaultModel),
		Limiter:       limiter,
		Metrics:       collector,
		Budget:        budget,
		Cache:         store,
		DefaultModel:  cfg.Settings.DefaultModel,
		FallbackModel: cfg.Settings.FallbackModel,
		Logger:        logger,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	queryHandler := handlers.NewQueryHandler(queryRouter, logger)
	auth := middleware.NewAPIKeyAuth(cfg.APIKeys)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", queryHandler.HandleHealth)

		protected := v1.Group("")
		protected.Use(auth.RequireKey())
		{
			protected.POST("/query", queryHandler.HandleQuery)
			protected.GET("/models", queryHandler.HandleListModels)
			protected.POST("/recommendations", queryHandler.HandleRecommendations)
			protected.GET("/stats", queryHandler.HandleStats)
			protected.GET("/usage", queryHandler.HandleAllUsage)
			protected.GET("/usage/:client_id", queryHandler.HandleUsage)
		}
	}

	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	logger.Info("modelmux running",
		zap.String("port", port),
		zap.String("default_model", cfg.Settings.DefaultModel),
		zap.String("fallback_model", cfg.Settings.FallbackModel),
		zap.Int("adapters", len(adapters)))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func buildLogger() (*zap.Logger, error) {
	if os.Getenv("ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func corsMiddleware() gin.HandlerFunc {
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	var allowedOrigins []string

	if allowedOriginsEnv != "" {
		allowedOrigins = strings.Split(allowedOriginsEnv, ",")
		for i := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
		}
	} else {
		allowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Requests without an Origin header (curl, health checks) pass through.
		if origin == "" {
			c.Next()
			return
		}

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}

		if !allowed {
			c.AbortWithStatus(403)
			return
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
