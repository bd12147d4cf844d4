package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/infrastructure/config"
	"github.com/kiosco/fiados/internal/infrastructure/logger"
	"github.com/kiosco/fiados/internal/infrastructure/telemetry"
	"github.com/kiosco/fiados/internal/interfaces/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EngineConfig carries everything the HTTP middleware stack depends on
type EngineConfig struct {
	Logger      *zap.Logger
	HTTP        config.HTTPConfig
	Production  bool
	ServiceName string

	// Nil providers disable the matching middleware.
	TracerProvider trace.TracerProvider
	MeterProvider  *telemetry.MeterProvider
	Profiling      bool

	IdempotencyStore shared.IdempotencyStore
	IdempotencyTTL   time.Duration
}

// NewEngine builds a gin engine with the middleware stack in this order:
// RequestID, Recovery, access log, Secure, CORS, BodyLimit, tracing, HTTP
// metrics, profiling labels. The Idempotency-Key check is returned separately
// because it belongs to the /api/v1 group only.
func NewEngine(cfg EngineConfig) (*gin.Engine, []gin.HandlerFunc) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))

	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	if cfg.TracerProvider != nil {
		tracing := middleware.DefaultTracingConfig()
		if cfg.ServiceName != "" {
			tracing.ServiceName = cfg.ServiceName
		}
		tracing.Options = []otelgin.Option{otelgin.WithTracerProvider(cfg.TracerProvider)}
		engine.Use(middleware.TracingWithConfig(tracing), middleware.SpanEnricher())
	}

	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: cfg.MeterProvider,
		Enabled:       cfg.MeterProvider != nil,
		Logger:        log,
	}))

	if cfg.Profiling {
		engine.Use(middleware.Profiling())
	}

	var api []gin.HandlerFunc
	if cfg.IdempotencyStore != nil {
		api = append(api, middleware.Idempotency(middleware.IdempotencyConfig{
			Store:   cfg.IdempotencyStore,
			TTL:     cfg.IdempotencyTTL,
			Enabled: true,
			Logger:  log,
		}))
	}
	return engine, api
}
