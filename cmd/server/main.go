package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/infrastructure/cache"
	"github.com/kiosco/fiados/internal/infrastructure/config"
	"github.com/kiosco/fiados/internal/infrastructure/logger"
	"github.com/kiosco/fiados/internal/infrastructure/persistence"
	"github.com/kiosco/fiados/internal/infrastructure/telemetry"
	"github.com/kiosco/fiados/internal/interfaces/http/handler"
	"github.com/kiosco/fiados/internal/interfaces/http/router"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 30 * time.Second

//	@title			Fiados Ledger API
//	@version		1.0
//	@description	Store-credit ledger for a neighbourhood shop: clients, fiados and their payments.

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	log.Info("Starting fiados ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName

	// Log export: tee stdout with the OTLP bridge so every entry keeps its trace context
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		log = telemetry.NewBridgedLogger(logger.NewCore(logCfg), telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    serviceName,
			LoggerProvider: logProvider,
			Level:          logger.ParseLevel(cfg.Log.Level),
		}), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(
		telemetry.DefaultProfilerConfig(cfg.Telemetry.ProfilingEnabled, cfg.Telemetry.ProfilingServerAddress), log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles unavailable", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// sqlite has no separate migration step
	if cfg.Database.AutoMigrate || db.Driver == config.DriverSQLite {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			log.Fatal("Failed to migrate ledger schema", zap.Error(err))
		}
		log.Info("Ledger schema migrated")
	}

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        telemetry.DBSystemFor(db.Driver),
	}, log).RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}

	dbMetrics, err := telemetry.RegisterDBMetrics(ctx, db.DB, meterProvider, telemetry.DBMetricsConfig{
		Enabled:            meterProvider.IsEnabled(),
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Warn("Database metrics unavailable", zap.Error(err))
	}

	// Ledger metrics are always created; with metrics export off they record on a no-op meter
	ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:           meterProvider.Meter("fiados.ledger"),
		Logger:          log,
		BalanceProvider: telemetry.NewGormBalanceProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		ledgerMetrics.StartPeriodicCollection(ctx)
	}

	// Repositories and the unit of work
	clienteRepo := persistence.NewGormClienteRepository(db.DB)
	fiadoRepo := persistence.NewGormFiadoRepository(db.DB)
	pagoRepo := persistence.NewGormPagoRepository(db.DB)
	reportRepo := persistence.NewGormLedgerReportRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB,
		persistence.WithTxTimeout(cfg.Ledger.TxTimeout),
		persistence.WithLockTimeout(cfg.Ledger.LockTimeout),
		persistence.WithScopeLogger(log),
	)

	// Application services
	clienteService := fiadoapp.NewClienteService(scope, clienteRepo, time.Now, log)
	ledgerService := fiadoapp.NewLedgerService(scope,
		fiadoapp.WithClock(time.Now),
		fiadoapp.WithLogger(log),
		fiadoapp.WithMetrics(ledgerMetrics),
	)
	queryService := fiadoapp.NewQueryService(clienteRepo, fiadoRepo, pagoRepo, reportRepo)

	var idempotencyStore shared.IdempotencyStore
	if cfg.Idempotency.Enabled {
		idempotencyStore, err = cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(!cfg.Idempotency.RequireRedis),
		).CreateStore(ctx)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := idempotencyStore.Close(); err != nil {
				log.Warn("Error closing idempotency store", zap.Error(err))
			}
		}()
	}

	var tp trace.TracerProvider
	if tracerProvider.IsEnabled() {
		tp = otel.GetTracerProvider()
	}
	var mp *telemetry.MeterProvider
	if meterProvider.IsEnabled() {
		mp = meterProvider
	}

	engine, api := router.NewEngine(router.EngineConfig{
		Logger:           log,
		HTTP:             cfg.HTTP,
		Production:       cfg.App.Env == "production",
		ServiceName:      serviceName,
		TracerProvider:   tp,
		MeterProvider:    mp,
		Profiling:        profiler.IsEnabled(),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.Idempotency.TTL,
	})
	router.RegisterLedgerRoutes(engine, router.Handlers{
		Clientes:     handler.NewClienteHandler(clienteService, ledgerService, queryService),
		Fiados:       handler.NewFiadoHandler(ledgerService, queryService),
		Estadisticas: handler.NewEstadisticasHandler(queryService),
		Health:       handler.NewHealthHandler(db, telemetry.ServiceVersion),
	}, api...)

	// Create HTTP server with config
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	ledgerMetrics.Stop()
	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
