package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appintegration "github.com/adinventory/backend/internal/application/integration"
	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/auth"
	"github.com/adinventory/backend/internal/infrastructure/config"
	"github.com/adinventory/backend/internal/infrastructure/crypto"
	"github.com/adinventory/backend/internal/infrastructure/lease"
	"github.com/adinventory/backend/internal/infrastructure/logger"
	"github.com/adinventory/backend/internal/infrastructure/persistence"
	"github.com/adinventory/backend/internal/infrastructure/provider"
	"github.com/adinventory/backend/internal/infrastructure/scheduler"
	"github.com/adinventory/backend/internal/infrastructure/storage"
	"github.com/adinventory/backend/internal/infrastructure/telemetry"
	"github.com/adinventory/backend/internal/interfaces/http/handler"
	"github.com/adinventory/backend/internal/interfaces/http/middleware"
	"github.com/adinventory/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first so the bridged logger reaches the collector
	otelProviders, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = otelProviders.BridgeLogger(log, logger.ParseLevel(cfg.Log.Level))

	log.Info("Starting integration service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	prof := cfg.Telemetry.Profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           prof.Enabled,
		ServerAddress:     prof.ServerAddress,
		ApplicationName:   prof.ApplicationName,
		BasicAuthUser:     prof.BasicAuthUser,
		BasicAuthPassword: prof.BasicAuthPassword,
		ProfileTypes:      prof.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && prof.SpanProfiles && !otelProviders.EnableSpanProfiles() {
		log.Warn("Span profiles need telemetry.enabled, skipping")
	}

	var meter = otelProviders.Meter("adinventory")
	if !otelProviders.IsEnabled() {
		meter = nil
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	dbMetrics, err := telemetry.InstrumentDB(db.DB, telemetry.DBConfig{
		TraceEnabled:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		DBName:             cfg.Database.DBName,
	}, meter, log)
	if err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}

	// Redis backs the sync lease; without it the lease falls back to memory
	var redisClient *redis.Client
	var lockerClient redis.UniversalClient
	if cfg.Lease.Backend == lease.BackendRedis {
		redisClient, err = lease.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable", zap.Error(err))
			redisClient = nil
		} else {
			lockerClient = redisClient
		}
	}
	locker := lease.NewLocker(cfg.Lease, lockerClient, log)

	sealer, err := crypto.NewSealer(cfg.Crypto.CredentialsKey)
	if err != nil {
		log.Fatal("Invalid credentials key", zap.Error(err))
	}
	if !sealer.Enabled() {
		log.Warn("Credentials key not configured, integration secrets are stored unencrypted")
	}

	// Repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB, sealer)
	historyRepo := persistence.NewGormSyncHistoryRepository(db.DB)
	mappingRepo := persistence.NewGormCampaignMappingRepository(db.DB)
	canonicalRepo := persistence.NewGormCanonicalRepository(db.DB)
	campaignRepo := persistence.NewGormCampaignRepository(db.DB)
	adSpaceRepo := persistence.NewGormAdSpaceRepository(db.DB)
	placementRepo := persistence.NewGormPlacementRepository(db.DB)

	// Provider adapters
	providerCfg, err := provider.FromSettings(cfg.Providers)
	if err != nil {
		log.Fatal("Invalid provider configuration", zap.Error(err))
	}
	httpClient := provider.NewHTTPClient(cfg.Providers.HTTPTimeout)
	reconciler := appintegration.NewReconciler(canonicalRepo, log)
	registry := provider.NewDefaultRegistry(providerCfg, httpClient, reconciler)
	credentials := provider.NewCredentialResolver(providerCfg, httpClient, log)

	// Job result archive
	var archive integration.JobResultArchive
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3Archive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to configure job archive", zap.Error(err))
		}
		if err := s3Archive.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare job archive bucket", zap.Error(err))
		}
		archive = s3Archive
		log.Info("Job result archive enabled", zap.String("bucket", s3Archive.Bucket()))
	}

	// Application services
	syncService := appintegration.NewSyncService(appintegration.SyncServiceDeps{
		Integrations: integrationRepo,
		History:      historyRepo,
		Registry:     registry,
		Credentials:  credentials,
		Locker:       locker,
		LeaseTTL:     cfg.Lease.TTL,
		Logger:       log,
	})
	jobService := appintegration.NewAsyncJobService(integrationRepo, registry, credentials, archive, log)
	pushService := appintegration.NewCampaignPushService(appintegration.CampaignPushServiceDeps{
		Campaigns:    campaignRepo,
		Integrations: integrationRepo,
		Mappings:     mappingRepo,
		Registry:     registry,
		Credentials:  credentials,
		FanOutLimit:  cfg.Providers.Kevel.FlightFanOutLimit,
		Logger:       log,
	})
	deletionService := appintegration.NewDeletionService(appintegration.DeletionServiceDeps{
		Integrations: integrationRepo,
		Mappings:     mappingRepo,
		History:      historyRepo,
		Canonical:    canonicalRepo,
		Campaigns:    campaignRepo,
		AdSpaces:     adSpaceRepo,
		Placements:   placementRepo,
		Logger:       log,
	})

	var syncMetrics *telemetry.SyncMetrics
	if meter != nil {
		syncMetrics, err = telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
			Meter:          meter,
			Logger:         log,
			StatusProvider: telemetry.NewGormIntegrationStatusProvider(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to create sync metrics", zap.Error(err))
		}
		syncMetrics.StartPeriodicCollection(ctx, 0)
		syncService.SetSyncMetrics(syncMetrics)
		pushService.SetSyncMetrics(syncMetrics)
	}

	// Auto-sync
	var autoSync *scheduler.AutoSyncScheduler
	if cfg.Scheduler.Enabled {
		schedCfg := scheduler.DefaultAutoSyncSchedulerConfig()
		if cfg.Scheduler.AutoSyncCron != "" {
			schedCfg.Cron = cfg.Scheduler.AutoSyncCron
		}
		if cfg.Scheduler.MaxConcurrentSyncs > 0 {
			schedCfg.MaxConcurrentSyncs = cfg.Scheduler.MaxConcurrentSyncs
		}
		schedCfg.SyncTimeout = cfg.Scheduler.SyncTimeout

		autoSync, err = scheduler.NewAutoSyncScheduler(schedCfg, syncService, log)
		if err != nil {
			log.Fatal("Failed to create auto-sync scheduler", zap.Error(err))
		}
		autoSync.Start()
	}

	// HTTP
	middleware.SetupValidator()
	jwtService := auth.NewJWTService(cfg.JWT)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Mode:           ginMode(cfg.App.Env),
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: otelProviders.IsEnabled(),
		Meter:          meter,
		CORS:           corsCfg,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	checks := map[string]handler.ReadinessCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	router.RegisterHealthRoutes(engine, handler.NewHealthHandler(version, checks))

	router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithAPIMiddleware(
			middleware.JWTAuth(middleware.JWTMiddlewareConfig{Validator: jwtService, Logger: log}),
			middleware.SpanEnricher(),
		),
	).
		Register(
			router.IntegrationRoutes(handler.NewIntegrationHandler(syncService, jobService, deletionService)),
			router.CampaignRoutes(handler.NewCampaignHandler(pushService)),
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if autoSync != nil {
		autoSync.Stop()
	}
	if syncMetrics != nil {
		syncMetrics.Stop()
	}
	if err := dbMetrics.Stop(); err != nil {
		log.Warn("Failed to stop database metrics", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop incomplete", zap.Error(err))
	}
	if err := otelProviders.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown incomplete", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func ginMode(env string) string {
	switch env {
	case "production", "prod":
		return "release"
	case "test":
		return "test"
	default:
		return "debug"
	}
}
