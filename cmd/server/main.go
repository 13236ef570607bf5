package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/storefront/internal/application/storefront"
	"github.com/erp/storefront/internal/infrastructure/config"
	"github.com/erp/storefront/internal/infrastructure/gateway"
	"github.com/erp/storefront/internal/infrastructure/logger"
	"github.com/erp/storefront/internal/infrastructure/telemetry"
	"github.com/erp/storefront/internal/interfaces/http/handler"
	"github.com/erp/storefront/internal/interfaces/http/middleware"
	"github.com/erp/storefront/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	tracer, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	metrics := telemetry.NewMetrics()

	// Upstream gateway client shared by every service
	client, err := gateway.New(gateway.Config{
		BaseURL:          cfg.Upstream.BaseURL,
		Timeout:          cfg.Upstream.Timeout,
		RateLimit:        cfg.Upstream.RateLimit,
		RateBurst:        cfg.Upstream.RateBurst,
		MaxResponseBytes: cfg.Upstream.MaxResponseBytes,
		UserAgent:        cfg.Upstream.UserAgent,
	}, gateway.WithLogger(log), gateway.WithObserver(metrics))
	if err != nil {
		log.Fatal("Failed to create upstream client", zap.Error(err))
	}

	policy, err := storefront.ParseRemovalPolicy(cfg.Cart.RemovalPolicy)
	if err != nil {
		log.Fatal("Invalid cart removal policy", zap.Error(err))
	}
	enrichment := storefront.EnrichmentSettings{
		Query: cfg.Catalog.Query,
		Limit: cfg.Catalog.Limit,
		Wait:  cfg.Catalog.Wait,
	}

	// Initialize application services
	catalogBuilder := storefront.NewCatalogIndexBuilder(client, log)
	catalogBuilder.SetRecorder(metrics)
	cartService := storefront.NewCartService(client, log)
	cartService.SetRecorder(metrics)
	orderHistory := storefront.NewOrderHistoryService(client, catalogBuilder, enrichment, log)
	orderHistory.SetRecorder(metrics)

	registry := storefront.NewViewRegistry(
		storefront.RegistryConfig{
			IdleTTL:       cfg.Session.IdleTTL,
			SweepInterval: cfg.Session.SweepInterval,
			MaxViews:      cfg.Session.MaxViews,
		},
		storefront.CartViewDeps{
			Carts:      client,
			Orders:     client,
			Catalog:    catalogBuilder,
			Enrichment: enrichment,
			Policy:     policy,
			Recorder:   metrics,
			Logger:     log,
		},
		storefront.SearchSettings{
			Debounce: cfg.Search.Debounce,
			Limit:    cfg.Search.Limit,
		},
		log,
	)
	registry.SetGauge(metrics)
	registry.Start()
	client.SetSessionListener(registry)

	log.Info("View registry started",
		zap.String("removal_policy", string(policy)),
		zap.Duration("idle_ttl", cfg.Session.IdleTTL),
		zap.Int("max_views", cfg.Session.MaxViews),
	)

	// Initialize HTTP handlers
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, registry.Len)
	handlers := router.Handlers{
		CartViews:   handler.NewCartViewHandler(registry),
		Carts:       handler.NewCartHandler(cartService),
		Orders:      handler.NewOrderHandler(orderHistory),
		Catalog:     handler.NewCatalogHandler(catalogBuilder, cfg.Search.Limit),
		SearchViews: handler.NewSearchViewHandler(registry),
		System:      systemHandler,
	}

	// Setup Gin
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracer.IsEnabled(),
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	routes := router.Mount(engine, handlers, router.WithAPIVersion("v1"))
	log.Info("Routes registered", zap.Int("count", len(routes)))

	srv := &http.Server{
		Addr:           cfg.App.Addr(),
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	systemHandler.SetDraining()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	registry.Stop()
	if err := tracer.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited")
}
