package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/infrastructure/logger"
	"github.com/kiosco/fiados/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// IdempotencyConfig configures the Idempotency-Key middleware.
type IdempotencyConfig struct {
	Store   shared.IdempotencyStore
	TTL     time.Duration
	Enabled bool
	Logger  *zap.Logger
}

// Idempotency rejects a duplicate POST that carries an Idempotency-Key already
// claimed for the same method and path. The claim is released when the
// handler does not answer 2xx so a corrected request may reuse the key.
// Requests without the header pass through untouched. If the store itself
// fails the request is let through and the failure is logged.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.Store == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key exceeds 128 characters", GetRequestID(c)))
			return
		}

		ctx := logger.WithIdempotencyKey(c.Request.Context(), key)
		c.Request = c.Request.WithContext(ctx)

		claim := c.Request.Method + " " + c.Request.URL.Path + " " + key
		claimed, err := cfg.Store.MarkProcessed(ctx, claim, ttl)
		if err != nil {
			logger.WithTraceContext(ctx, log).Warn("Idempotency store unavailable, processing without duplicate protection",
				zap.String("idempotency_key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !claimed {
			log.Info("Duplicate request rejected",
				zap.String("idempotency_key", key),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)),
			)
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeIdempotencyReused,
				"A request with this Idempotency-Key was already processed",
				GetRequestID(c),
			))
			return
		}

		// A panicking handler has not written its status yet, so it is
		// released explicitly before Recovery answers 500.
		panicked := true
		defer func() {
			if status := c.Writer.Status(); panicked || status < 200 || status >= 300 {
				if err := cfg.Store.Release(context.WithoutCancel(ctx), claim); err != nil {
					log.Warn("Failed to release idempotency key",
						zap.String("idempotency_key", key),
						zap.Error(err),
					)
				}
			}
		}()

		c.Next()
		panicked = false
	}
}
