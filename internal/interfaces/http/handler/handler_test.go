package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/interfaces/http/dto"
	"github.com/kiosco/fiados/internal/interfaces/http/handler"
	"github.com/kiosco/fiados/internal/interfaces/http/middleware"
	"github.com/kiosco/fiados/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLedgerEngine mounts the ledger handlers over a fresh sqlite ledger.
func newLedgerEngine(t *testing.T) (*gin.Engine, *testutil.Ledger) {
	t.Helper()
	middleware.SetupValidator()
	l := testutil.NewLedger(t)

	clientes := handler.NewClienteHandler(l.Clientes, l.Ledger, l.Queries)
	fiados := handler.NewFiadoHandler(l.Ledger, l.Queries)
	stats := handler.NewEstadisticasHandler(l.Queries)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api/v1")
	api.POST("/clientes", clientes.Create)
	api.GET("/clientes", clientes.List)
	api.GET("/clientes/:id", clientes.Get)
	api.GET("/clientes/:id/resumen", clientes.Resumen)
	api.GET("/clientes/:id/pagos", clientes.HistorialPagos)
	api.POST("/clientes/:id/interes", clientes.AplicarInteres)
	api.POST("/clientes/:id/pagar-todo", clientes.PagarTodo)
	api.POST("/fiados", fiados.Create)
	api.GET("/fiados", fiados.List)
	api.GET("/fiados/:id", fiados.Get)
	api.PUT("/fiados/:id", fiados.Update)
	api.DELETE("/fiados/:id", fiados.Delete)
	api.POST("/fiados/:id/pagos", fiados.RegistrarPago)
	api.GET("/fiados/:id/pagos", fiados.Historial)
	api.GET("/estadisticas", stats.Get)
	return engine, l
}

func TestBaseHandler_HandleError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		status     int
		code       string
		retryable  bool
		retryAfter string
	}{
		{"domain", shared.NewDomainError(dto.ErrCodeExceedsOutstanding, "too much"), http.StatusUnprocessableEntity, dto.ErrCodeExceedsOutstanding, false, ""},
		{"wrapped not found", errors.Join(errors.New("ctx"), shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound, false, ""},
		{"timeout", &shared.StorageError{Op: "registrar_pago", Timeout: true, Err: context.DeadlineExceeded}, http.StatusServiceUnavailable, dto.ErrCodeStorageUnavailable, true, "1"},
		{"conflict", shared.NewConflictError("pagar_todo", errors.New("deadlock")), http.StatusServiceUnavailable, dto.ErrCodeStorageUnavailable, true, "1"},
		{"permanent storage", shared.NewStorageError("crear_fiado", errors.New("fk")), http.StatusInternalServerError, dto.ErrCodeStorageFailure, false, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal, false, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := gin.New()
			engine.Use(middleware.RequestID())
			base := &handler.BaseHandler{}
			engine.GET("/x", func(c *gin.Context) { base.HandleError(c, tc.err) })

			w := testutil.Do(t, engine, http.MethodGet, "/x", nil, middleware.HeaderRequestID, "req-7")

			testutil.AssertError(t, w, tc.status, tc.code)
			env := testutil.Decode[any](t, w)
			assert.Equal(t, "req-7", env.Error.RequestID)
			assert.Equal(t, tc.retryable, env.Error.Retryable)
			assert.Equal(t, tc.retryAfter, w.Header().Get("Retry-After"))
		})
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		engine := gin.New()
		engine.GET("/health", handler.NewHealthHandler(fakePinger{}, "1.2.0").Health)

		w := testutil.Do(t, engine, http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, w.Code)
		env := testutil.Decode[handler.HealthResponse](t, w)
		assert.Equal(t, "healthy", env.Data.Status)
		assert.Equal(t, "up", env.Data.Database)
		assert.Equal(t, "1.2.0", env.Data.Version)
	})

	t.Run("database down", func(t *testing.T) {
		engine := gin.New()
		engine.GET("/health", handler.NewHealthHandler(fakePinger{err: errors.New("refused")}, "1.2.0").Health)

		w := testutil.Do(t, engine, http.MethodGet, "/health", nil)

		testutil.AssertError(t, w, http.StatusServiceUnavailable, dto.ErrCodeStorageUnavailable)
		env := testutil.Decode[handler.HealthResponse](t, w)
		assert.Equal(t, "down", env.Data.Database)
	})
}
