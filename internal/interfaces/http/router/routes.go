package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kiosco/fiados/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers of the ledger API
type Handlers struct {
	Clientes     *handler.ClienteHandler
	Fiados       *handler.FiadoHandler
	Estadisticas *handler.EstadisticasHandler
	Health       *handler.HealthHandler
}

// RegisterLedgerRoutes mounts the ledger API on engine: /health at the root
// and every resource under /api/v1. apiMiddleware runs only for /api/v1.
func RegisterLedgerRoutes(engine *gin.Engine, h Handlers, apiMiddleware ...gin.HandlerFunc) {
	engine.GET("/health", h.Health.Health)

	clientes := NewDomainGroup("clientes", "/clientes")
	clientes.POST("", h.Clientes.Create)
	clientes.GET("", h.Clientes.List)
	clientes.GET("/:id", h.Clientes.Get)
	clientes.GET("/:id/resumen", h.Clientes.Resumen)
	clientes.GET("/:id/pagos", h.Clientes.HistorialPagos)
	clientes.POST("/:id/interes", h.Clientes.AplicarInteres)
	clientes.POST("/:id/pagar-todo", h.Clientes.PagarTodo)

	fiados := NewDomainGroup("fiados", "/fiados")
	fiados.POST("", h.Fiados.Create)
	fiados.GET("", h.Fiados.List)
	fiados.GET("/:id", h.Fiados.Get)
	fiados.PUT("/:id", h.Fiados.Update)
	fiados.DELETE("/:id", h.Fiados.Delete)
	fiados.POST("/:id/pagos", h.Fiados.RegistrarPago)
	fiados.GET("/:id/pagos", h.Fiados.Historial)

	estadisticas := NewDomainGroup("estadisticas", "/estadisticas")
	estadisticas.GET("", h.Estadisticas.Get)

	system := NewDomainGroup("system", "")
	system.GET("/ping", h.Health.Health)

	NewRouter(engine, WithAPIVersion("v1")).
		Use(apiMiddleware...).
		Register(clientes).
		Register(fiados).
		Register(estadisticas).
		Register(system).
		Setup()
}
