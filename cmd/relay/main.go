package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/services"
	httphandlers "talentwire/internal/handlers/http"
	"talentwire/internal/infrastructure/analysis"
	"talentwire/internal/infrastructure/distributed"
	"talentwire/internal/infrastructure/gateway"
	"talentwire/internal/infrastructure/middleware"
	"talentwire/internal/infrastructure/monitoring"
	"talentwire/internal/infrastructure/repositories/postgres"
	redisrepo "talentwire/internal/infrastructure/repositories/redis"
	"talentwire/pkg/circuitbreaker"
	"talentwire/pkg/config"
	"talentwire/pkg/logger"
	"talentwire/pkg/tracing"
	"talentwire/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/talentwire/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "talentwire-relay",
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Storage
	redisClient, err := redisrepo.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, log)
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}

	pool, err := postgres.NewPool(rootCtx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.ConnTimeout, log)
	if err != nil {
		log.Fatalw("failed to connect to postgres", "error", err)
	}

	if err := postgres.Migrate(rootCtx, pool); err != nil {
		log.Fatalw("failed to apply schema migrations", "error", err)
	}

	roundRepo := services.NewCachedRoundRepository(postgres.NewRoundRepository(pool), cfg.Insights.RoundCacheTTL)
	insightRepo := postgres.NewInsightRepository(pool)
	alertRepo := postgres.NewFraudAlertRepository(pool)
	mediaLog := redisrepo.NewMediaLog(redisClient, cfg.Ingest.StreamMaxLen)

	// Monitoring
	collector := monitoring.NewPrometheusCollector()

	// Resilience
	breakers := circuitbreaker.NewRegistry(circuitbreaker.Config{
		FailureThreshold:    cfg.Analysis.Breaker.FailureThreshold,
		SuccessThreshold:    cfg.Analysis.Breaker.SuccessThreshold,
		RollingWindow:       cfg.Analysis.Breaker.RollingWindow,
		ResetTimeout:        cfg.Analysis.Breaker.ResetTimeout,
		MaxRequestsHalfOpen: cfg.Analysis.Breaker.MaxRequestsHalfOpen,
	})
	breakers.OnStateChange(func(name string, from, to circuitbreaker.State) {
		collector.ObserveBreakerState(name, from, to)
		log.Warnw("circuit breaker state change", "dependency", name, "from", from.String(), "to", to.String())
	})

	analysisGateway := analysis.NewGateway(cfg.Analysis.Services, cfg.Analysis.InternalKey, cfg.Analysis.CallTimeout, breakers, log)

	// Room hub and cluster bus. The bus delivers remote events into the hub;
	// the hub publishes local broadcasts onto the bus.
	instanceID := utils.GenerateInstanceID()
	var hub *gateway.Hub
	clusterBus := distributed.NewClusterBus(rootCtx, redisClient, instanceID, func(roundID domain.RoundID, data []byte) {
		hub.DeliverClusterEvent(roundID, data)
	}, log)
	hub = gateway.NewHub(clusterBus, collector, log)

	// Core services
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	insightService := services.NewInsightService(insightRepo, alertRepo, hub, cfg.Insights.DefaultConfidence, collector, log)
	roomService := services.NewRoomService(roundRepo, insightRepo, hub, cfg.Insights.CatchUpWindow, log)
	ingestService := services.NewIngestService(mediaLog, analysisGateway, cfg.Ingest.Relaxed, log)

	// Analysis results pipeline
	resultsSubscriber := distributed.NewResultsSubscriber(redisClient, insightService, log)
	go func() {
		if err := resultsSubscriber.Run(rootCtx); err != nil && rootCtx.Err() == nil {
			log.Errorw("results subscriber stopped", "error", err)
		}
	}()

	// Websocket gateway
	wsServer := gateway.NewWebSocketServer(authService, roomService, ingestService, insightService, cfg.Gateway, collector, log)

	// Health checks
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}, 15*time.Second, 2*time.Second)
	healthChecker.AddCheck("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	}, 15*time.Second, 2*time.Second)
	for _, dependency := range analysisGateway.Dependencies() {
		dep := dependency
		healthChecker.AddCheck("analysis:"+dep, func(ctx context.Context) error {
			return analysisGateway.ProbeHealth(ctx, dep)
		}, 30*time.Second, cfg.Analysis.CallTimeout)
	}
	healthChecker.StartBackgroundChecks(rootCtx)

	// HTTP handlers
	insightHandler := httphandlers.NewInsightHandler(roundRepo, insightRepo, alertRepo, insightService)
	opsHandler := httphandlers.NewOpsHandler(healthChecker, breakers)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	router.GET("/ws", gin.WrapF(wsServer.HandleWebSocket))
	router.GET("/health", opsHandler.Health)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	{
		api.GET("/rounds/:id/insights", insightHandler.ListInsights)
		api.GET("/rounds/:id/alerts", insightHandler.ListAlerts)
		api.POST("/alerts/:id/ack", insightHandler.AcknowledgeAlert)
		api.GET("/breakers", opsHandler.Breakers)
	}

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting talentwire relay", "address", cfg.Server.Address, "instance_id", instanceID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}

	rootCancel()
	hub.Stop()

	if err := clusterBus.Close(); err != nil {
		log.Errorw("error closing cluster bus", "error", err)
	}
	if err := redisrepo.CloseRedisClient(redisClient); err != nil {
		log.Errorw("error closing redis client", "error", err)
	}
	pool.Close()

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer", "error", err)
	}

	log.Info("talentwire relay stopped")
}
